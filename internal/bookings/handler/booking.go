package handler

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"

	"carrental/internal/bookings/service"
	apperrors "carrental/pkg/errors"
	httputil "carrental/pkg/http"
	"carrental/pkg/logger"
	"carrental/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingResponse struct {
	BookingID string `json:"booking_id"`
}

type AvailabilityResponse struct {
	CarID     string `json:"car_id"`
	Available bool   `json:"available"`
}

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/", h.ListAvailable)
	router.POST("/:car_id", h.Book)
	router.GET("/api/v1/cars/:car_id/availability", h.Availability)
}

// ListAvailable streams a JSON array of the cars free for the requested
// dates, flushing after each car. The first element is pulled before the
// status line is written so an early failure still gets a proper error
// response. A failure after that aborts the connection, leaving the client
// with a truncated array rather than a silently short one.
func (h *BookingHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dates, ok := h.parseDates(w, r, "ListAvailable")
	if !ok {
		return
	}

	next, stop := iter.Pull2(h.service.ListAvailableCars(r.Context(), dates))
	defer stop()

	car, err, more := next()
	if more && err != nil {
		h.writeError(w, "ListAvailable", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	if _, err := w.Write([]byte("[")); err != nil {
		h.log.Warn("Client went away while streaming cars", "error", err)
		return
	}

	for first := true; more; car, err, more = next() {
		if err != nil {
			h.log.Error("Listing available cars failed mid-stream", "error", err)
			panic(http.ErrAbortHandler)
		}

		data, err := json.Marshal(car)
		if err != nil {
			h.log.Error("Failed to encode car", "car_id", car.ID, "error", err)
			panic(http.ErrAbortHandler)
		}
		if !first {
			data = append([]byte(","), data...)
		}
		first = false

		if _, err := w.Write(data); err != nil {
			h.log.Warn("Client went away while streaming cars", "error", err)
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.log.Warn("Failed to flush car stream", "error", err)
			return
		}
	}

	if _, err := w.Write([]byte("]")); err != nil {
		h.log.Warn("Client went away while streaming cars", "error", err)
	}
}

// Book runs a lock-free availability check first so requests for a car that
// is plainly taken never wait on its lock; BookCar repeats the check under
// the lock before writing.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	carID := ps.ByName("car_id")

	dates, ok := h.parseDates(w, r, "Book")
	if !ok {
		return
	}

	available, err := h.service.IsCarAvailable(r.Context(), carID, dates)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}
	if !available {
		h.writeError(w, "Book", apperrors.Conflict(service.MsgCarNotAvailable))
		return
	}

	booking := &model.Booking{
		CarID:     carID,
		StartDate: dates.Start,
		EndDate:   dates.End,
	}
	if err := h.service.BookCar(r.Context(), booking); err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteSuccess(w, BookingResponse{BookingID: booking.ID}); err != nil {
		h.log.Error("failed to write success response", "handler", "Book", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	carID := ps.ByName("car_id")

	dates, ok := h.parseDates(w, r, "Availability")
	if !ok {
		return
	}

	available, err := h.service.IsCarAvailable(r.Context(), carID, dates)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, AvailabilityResponse{CarID: carID, Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) parseDates(w http.ResponseWriter, r *http.Request, handler string) (model.DateRange, bool) {
	query := r.URL.Query()
	dates, err := model.ParseDateRange(query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		h.writeError(w, handler, apperrors.InvalidInput(err.Error()))
		return model.DateRange{}, false
	}
	return dates, true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
