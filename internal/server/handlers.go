package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hamsci/lstid-detect/internal/sinfit"
	"github.com/hamsci/lstid-detect/internal/storage"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

type fitView struct {
	PeriodHr    *float64 `json:"T_hr"`
	AmplitudeKm *float64 `json:"amplitude_km"`
	PhaseHr     *float64 `json:"phase_hr"`
	OffsetKm    *float64 `json:"offset_km"`
	SlopeKmph   *float64 `json:"slope_kmph"`
	R2          *float64 `json:"r2"`
}

type resultView struct {
	RunID            string           `json:"run_id"`
	Date             string           `json:"date"`
	CreatedAt        time.Time        `json:"created_at"`
	IsLSTID          bool             `json:"is_lstid"`
	FitState         string           `json:"fit_state"`
	SelectedQuantile float64          `json:"selected_quantile"`
	FitWindowStart   time.Time        `json:"fit_window_start"`
	FitWindowEnd     time.Time        `json:"fit_window_end"`
	Fallback         bool             `json:"fallback"`
	Fit              fitView          `json:"fit"`
	PolyR2           *float64         `json:"poly_r2"`
	Attempts         []sinfit.Attempt `json:"attempts"`
}

func newResultView(rec *storage.Record) (resultView, error) {
	attempts, err := rec.DecodeAttempts()
	if err != nil {
		return resultView{}, err
	}
	return resultView{
		RunID:            rec.RunID,
		Date:             rec.Date.Format(dateLayout),
		CreatedAt:        rec.CreatedAt,
		IsLSTID:          rec.IsLSTID,
		FitState:         rec.FitState,
		SelectedQuantile: rec.SelectedQuantile,
		FitWindowStart:   rec.FitWindowStart,
		FitWindowEnd:     rec.FitWindowEnd,
		Fallback:         rec.Fallback,
		Fit: fitView{
			PeriodHr:    rec.PeriodHr,
			AmplitudeKm: rec.AmplitudeKm,
			PhaseHr:     rec.PhaseHr,
			OffsetKm:    rec.OffsetKm,
			SlopeKmph:   rec.SlopeKmph,
			R2:          rec.R2,
		},
		PolyR2:   rec.PolyR2,
		Attempts: attempts,
	}, nil
}

func (s *Server) getHealth(w http.ResponseWriter, req *http.Request) {
	s.formatter.WriteResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getResult(w http.ResponseWriter, req *http.Request) {
	raw := mux.Vars(req)["date"]
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		s.formatter.WriteResponse(w, req, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	rec, err := s.reader.Get(req.Context(), date)
	if errors.Is(err, storage.ErrNotFound) {
		s.formatter.WriteResponse(w, req, http.StatusNotFound, errorResponse{Error: "no result stored for " + raw})
		return
	}
	if err != nil {
		s.logger.Errorw("could not read result", "date", raw, "error", err)
		s.formatter.WriteResponse(w, req, http.StatusInternalServerError, errorResponse{Error: "could not read result"})
		return
	}

	view, err := newResultView(rec)
	if err != nil {
		s.logger.Errorw("could not decode result", "date", raw, "run_id", rec.RunID, "error", err)
		s.formatter.WriteResponse(w, req, http.StatusInternalServerError, errorResponse{Error: "could not decode result"})
		return
	}
	s.formatter.WriteResponse(w, req, http.StatusOK, view)
}
