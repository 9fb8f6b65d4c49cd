package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReminderSender delivers a reminder notification. Satisfied by the SMTP
// mailer.
type ReminderSender interface {
	Send(to, subject, body string) error
}

// SendDueReminders mails every approved or confirmed appointment starting
// within the reminder horizon that has not been reminded yet. Intended to be
// called periodically by the worker. Send failures are logged and skipped so
// one bad address cannot stall the batch; the appointment stays unreminded
// and is retried on the next run.
func (s *Service) SendDueReminders(ctx context.Context, sender ReminderSender) error {
	now := s.Now()
	due, err := s.repo.FindDueReminders(ctx, now, s.cfg.ReminderHorizon)
	if err != nil {
		return fmt.Errorf("find due reminders: %w", err)
	}

	for _, appt := range due {
		if appt.Patient == nil || appt.Patient.Email == nil {
			// Nothing to deliver to; mark it so we stop re-selecting it.
			if err := s.repo.MarkReminderSent(ctx, appt.ID, now); err != nil {
				s.log.Warn("failed to mark reminder for appointment without email",
					zap.String("appointment_id", appt.ID.String()),
					zap.Error(err),
				)
			}
			continue
		}

		staffName := "your clinician"
		if appt.Staff != nil {
			staffName = appt.Staff.Name
		}

		local := appt.AppointmentDate.In(s.loc)
		subject := "Appointment reminder"
		body := fmt.Sprintf(
			"Hello %s,\r\n\r\nThis is a reminder of your appointment with %s on %s at %s.\r\n\r\nIf you cannot attend, please cancel or reschedule in advance.\r\n",
			appt.Patient.Name,
			staffName,
			local.Format("Monday, 2 January 2006"),
			local.Format("15:04"),
		)

		if err := sender.Send(*appt.Patient.Email, subject, body); err != nil {
			s.log.Error("failed to send appointment reminder",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.repo.MarkReminderSent(ctx, appt.ID, now); err != nil {
			s.log.Error("failed to mark reminder sent",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}

		s.log.Info("appointment reminder sent",
			zap.String("appointment_id", appt.ID.String()),
			zap.Time("start", appt.AppointmentDate),
		)
	}

	return nil
}
