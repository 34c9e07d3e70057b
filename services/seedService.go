package services

import (
	"ClinicHub/models"
	"ClinicHub/repositories"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

type demoSlot struct {
	title    string
	kind     string
	day      int
	hour     int
	duration time.Duration
	status   models.AppointmentStatus
}

var demoSlots = []demoSlot{
	{"Initial consultation", "consultation", 0, 9, 45 * time.Minute, models.AppointmentScheduled},
	{"Dental cleaning", "cleaning", 1, 10, 30 * time.Minute, models.AppointmentConfirmed},
	{"X-ray review", "exam", 2, 14, 30 * time.Minute, models.AppointmentScheduled},
	{"Filling", "procedure", 4, 11, time.Hour, models.AppointmentScheduled},
	{"Follow-up", "follow-up", 7, 16, 20 * time.Minute, models.AppointmentScheduled},
}

type SeedService struct {
	patients     *repositories.PatientRepository
	appointments *repositories.AppointmentRepository
	now          func() time.Time
}

func NewSeedService(patients *repositories.PatientRepository, appointments *repositories.AppointmentRepository) *SeedService {
	return &SeedService{patients: patients, appointments: appointments, now: time.Now}
}

// DemoAppointments builds the demo schedule for patientID, starting the day
// after now.
func DemoAppointments(patientID string, now time.Time) []models.Appointment {
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	appointments := make([]models.Appointment, 0, len(demoSlots))
	for _, slot := range demoSlots {
		start := tomorrow.AddDate(0, 0, slot.day).Add(time.Duration(slot.hour) * time.Hour)
		id := patientID
		appointments = append(appointments, models.Appointment{
			Title:     slot.title,
			Type:      slot.kind,
			StartTime: start,
			EndTime:   start.Add(slot.duration),
			Status:    slot.status,
			PatientID: &id,
			Notes:     "Demo appointment",
		})
	}
	return appointments
}

// SeedDemoAppointments inserts the demo schedule for the oldest patient and
// returns how many appointments were created.
func (s *SeedService) SeedDemoAppointments(ctx context.Context) (int, error) {
	patient, err := s.patients.First(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, ErrNoPatients
	}
	if err != nil {
		return 0, err
	}

	appointments := DemoAppointments(patient.ID, s.now())
	if err := s.appointments.CreateBatch(ctx, appointments); err != nil {
		return 0, err
	}
	log.Info().Str("patient_id", patient.ID).Int("count", len(appointments)).Msg("seeded demo appointments")
	return len(appointments), nil
}
