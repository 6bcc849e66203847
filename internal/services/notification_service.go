package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

const (
	NotificationBookingCreated     = "created"
	NotificationBookingConfirmed   = "confirmed"
	NotificationBookingCancelled   = "cancelled"
	NotificationBookingRescheduled = "rescheduled"
)

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
}

// EventPusher delivers an in-app event to a connected user, if any. The
// websocket hub implements it.
type EventPusher interface {
	PushToUser(userID int64, payload any)
}

// NotificationService emails the counterparty about booking lifecycle events
// and mirrors them onto the websocket hub. Delivery is asynchronous and
// best-effort: a failed send is logged and dropped, never surfaced to the
// booking flow.
type NotificationService struct {
	bookingRepo        bookingReader
	userRepo           userReader
	teacherProfileRepo teacherProfileReader
	studentProfileRepo studentProfileReader
	pusher             EventPusher
	apiKey             string
	fromEmail          string
	fromName           string
	log                *zap.Logger
}

type studentProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error)
}

func NewNotificationService(
	bookingRepo bookingReader,
	userRepo userReader,
	teacherProfileRepo teacherProfileReader,
	studentProfileRepo studentProfileReader,
	pusher EventPusher,
	apiKey string,
	fromEmail string,
	fromName string,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		bookingRepo:        bookingRepo,
		userRepo:           userRepo,
		teacherProfileRepo: teacherProfileRepo,
		studentProfileRepo: studentProfileRepo,
		pusher:             pusher,
		apiKey:             apiKey,
		fromEmail:          fromEmail,
		fromName:           fromName,
		log:                log.With(zap.String("service", "notification")),
	}
}

func (s *NotificationService) Notify(bookingID int64, event string) {
	go s.deliver(bookingID, event)
}

func (s *NotificationService) deliver(bookingID int64, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		s.log.Warn("notification dropped, booking lookup failed",
			zap.Int64("booking_id", bookingID), zap.String("event", event), zap.Error(err))
		return
	}

	for _, userID := range s.recipients(booking, event) {
		if s.pusher != nil {
			s.pusher.PushToUser(userID, map[string]any{
				"type":       "booking." + event,
				"booking_id": booking.ID,
				"date":       DateOnly(booking.Date).Format(time.DateOnly),
				"start_time": booking.StartTime,
				"end_time":   booking.EndTime,
				"status":     booking.Status,
			})
		}
		s.sendEmail(ctx, userID, booking, event)
	}
}

// recipients picks who should hear about the event: the teacher on creation,
// the student on confirmation, the party that did not cancel on cancellation,
// and both sides on a reschedule.
func (s *NotificationService) recipients(booking *models.Booking, event string) []int64 {
	switch event {
	case NotificationBookingCreated:
		return []int64{booking.TeacherID}
	case NotificationBookingConfirmed:
		return []int64{booking.StudentID}
	case NotificationBookingCancelled:
		if booking.CancelledBy != nil && *booking.CancelledBy == "teacher" {
			return []int64{booking.StudentID}
		}
		return []int64{booking.TeacherID}
	case NotificationBookingRescheduled:
		return []int64{booking.StudentID, booking.TeacherID}
	default:
		return nil
	}
}

func (s *NotificationService) sendEmail(ctx context.Context, userID int64, booking *models.Booking, event string) {
	if s.apiKey == "" || s.fromEmail == "" {
		return
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.Warn("notification email dropped, user lookup failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	name := s.displayName(ctx, user)
	subject, body := s.compose(name, booking, event)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(name, user.Email)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		s.log.Warn("notification email failed",
			zap.Int64("booking_id", booking.ID), zap.String("event", event), zap.Error(err))
		return
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		s.log.Warn("notification email rejected",
			zap.Int64("booking_id", booking.ID),
			zap.String("event", event),
			zap.Int("status", response.StatusCode))
		return
	}

	s.log.Info("notification email sent",
		zap.Int64("booking_id", booking.ID), zap.String("event", event))
}

func (s *NotificationService) displayName(ctx context.Context, user *models.User) string {
	switch user.Role {
	case "teacher":
		if profile, err := s.teacherProfileRepo.GetByUserID(ctx, user.ID); err == nil && profile.FullName != nil {
			return *profile.FullName
		}
	case "student":
		if profile, err := s.studentProfileRepo.GetByUserID(ctx, user.ID); err == nil && profile.FullName != nil {
			return *profile.FullName
		}
	}
	return user.Email
}

func (s *NotificationService) compose(name string, booking *models.Booking, event string) (string, string) {
	when := fmt.Sprintf("%s from %s to %s",
		DateOnly(booking.Date).Format("Mon, 02 Jan 2006"),
		booking.StartTime[:5],
		booking.EndTime[:5],
	)

	var subject, lede string
	switch event {
	case NotificationBookingCreated:
		subject = "New booking request"
		lede = "You have a new booking request."
	case NotificationBookingConfirmed:
		subject = "Your booking is confirmed"
		lede = "Your booking has been confirmed."
	case NotificationBookingCancelled:
		subject = "A booking was cancelled"
		lede = "One of your bookings has been cancelled."
	case NotificationBookingRescheduled:
		subject = "A booking was rescheduled"
		lede = "One of your bookings has been moved."
	default:
		subject = "Booking update"
		lede = "One of your bookings was updated."
	}

	body := fmt.Sprintf("Hello %s,\n\n%s\n\nSession: %s\nStatus: %s\n\nOpen the app for the details.",
		name, lede, when, booking.Status)
	return subject, body
}
