package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gastrack/industrial-gas-monitoring/internal/analytics"
	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
	"github.com/gastrack/industrial-gas-monitoring/internal/importer"
	"github.com/gastrack/industrial-gas-monitoring/internal/service"
	"github.com/gastrack/industrial-gas-monitoring/internal/session"
)

func Register(app *fiber.App, svcs *service.Services, logger zerolog.Logger) {
	h := &handlers{svcs: svcs, log: logger}

	app.Post("/login", h.login)

	app.Get("/users", h.listUsers)
	app.Post("/users", h.createUser)
	app.Delete("/users/:id", h.deleteUser)

	app.Get("/industries", h.listIndustries)
	app.Post("/industries/import", h.importIndustries)
	app.Get("/industries/:id/consumption", h.industryConsumption)

	app.Get("/readings", h.listReadings)
	app.Post("/readings", h.submitReading)
	app.Post("/readings/extract", h.extractReading)
	app.Get("/readings/:id/image", h.readingImage)
	app.Delete("/readings/:id", h.deleteReading)

	app.Get("/assignments", h.listAssignments)
	app.Put("/assignments/:username", h.saveAssignment)
}

type handlers struct {
	svcs *service.Services
	log  zerolog.Logger
}

func (h *handlers) snapshot(c *fiber.Ctx) (*domain.Snapshot, error) {
	snap, err := h.svcs.Store.FetchAll(c.Context())
	if err != nil {
		return nil, c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return snap, nil
}

func (h *handlers) login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	user, err := session.Authenticate(snap.Users, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrBadCredentials) {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(user)
}

func (h *handlers) listUsers(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(snap.Users)
}

func (h *handlers) createUser(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Username == "" {
		return c.Status(400).JSON(fiber.Map{"error": "username is required"})
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	user := domain.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Role:     role,
	}
	if err := h.svcs.Store.PutUser(c.Context(), user); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(user)
}

func (h *handlers) deleteUser(c *fiber.Ctx) error {
	if err := h.svcs.Store.DeleteUser(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(204)
}

func (h *handlers) listIndustries(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(snap.Industries)
}

func (h *handlers) importIndustries(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "missing workbook upload"})
	}
	f, err := file.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	defer f.Close()

	industries, err := importer.Parse(f, h.log)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.svcs.Store.BulkPutIndustries(c.Context(), industries); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"imported": len(industries)})
}

func (h *handlers) industryConsumption(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	ind := snap.IndustryByID(c.Params("id"))
	if ind == nil {
		return c.Status(404).JSON(fiber.Map{"error": "industry not found"})
	}
	cons := analytics.Analyze(*ind, snap.ReadingsForIndustry(ind.ID))
	return c.JSON(cons)
}

// readingView pairs a stored reading with the resolved industry and meter
// names so history rows render even after their owners are deleted.
type readingView struct {
	domain.Reading
	IndustryName string `json:"industry_name"`
	MeterName    string `json:"meter_name"`
}

func (h *handlers) listReadings(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	views := make([]readingView, 0, len(snap.Readings))
	for _, r := range snap.Readings {
		v := readingView{Reading: r, IndustryName: domain.UnknownIndustry, MeterName: domain.UnknownIndustry}
		if ind := snap.IndustryByID(r.IndustryID); ind != nil {
			v.IndustryName = ind.Name
			if m := ind.MeterByID(r.MeterID); m != nil {
				v.MeterName = m.Name
			}
		}
		views = append(views, v)
	}
	return c.JSON(views)
}

func (h *handlers) submitReading(c *fiber.Ctx) error {
	var req service.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	reading, err := h.svcs.Readings.Submit(c.Context(), req)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(reading)
}

func (h *handlers) extractReading(c *fiber.Ctx) error {
	var req struct {
		Image string `json:"image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	// Extraction never fails outward; a nil value tells the client to fall
	// back to manual entry.
	return c.JSON(h.svcs.Readings.ExtractValue(c.Context(), req.Image))
}

func (h *handlers) readingImage(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	reading := findReading(snap.Readings, c.Params("id"))
	if reading == nil || reading.ImageRef == "" {
		return c.Status(404).JSON(fiber.Map{"error": "reading has no image"})
	}
	url, err := h.svcs.Readings.ImageURL(c.Context(), *reading)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if url == "" {
		return c.Status(404).JSON(fiber.Map{"error": "image storage disabled"})
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *handlers) deleteReading(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	// Absent id is a no-op delete, same as at the store.
	if reading := findReading(snap.Readings, c.Params("id")); reading != nil {
		if err := h.svcs.Readings.Delete(c.Context(), *reading); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.SendStatus(204)
}

func findReading(readings []domain.Reading, id string) *domain.Reading {
	for idx := range readings {
		if readings[idx].ID == id {
			return &readings[idx]
		}
	}
	return nil
}

func (h *handlers) listAssignments(c *fiber.Ctx) error {
	snap, err := h.snapshot(c)
	if snap == nil {
		return err
	}
	return c.JSON(snap.Assignments)
}

func (h *handlers) saveAssignment(c *fiber.Ctx) error {
	var industries []domain.Industry
	if err := c.BodyParser(&industries); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	username := c.Params("username")
	if err := h.svcs.Store.SaveAssignment(c.Context(), username, industries); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(204)
}
