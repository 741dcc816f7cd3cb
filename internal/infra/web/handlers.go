package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"corporate-fund-bot/internal/domain"
	"corporate-fund-bot/internal/domain/model"
	"corporate-fund-bot/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type personCreateRequest struct {
	PersonnelNumber string `json:"personnel_number"`
	FirstName       string `json:"first_name"`
	Patronymic      string `json:"patronymic"`
	BirthDate       string `json:"birth_date"` // DD.MM.YYYY
}

type personResponse struct {
	ID              string `json:"id"`
	PersonnelNumber string `json:"personnel_number"`
	FullName        string `json:"full_name"`
	BirthDate       string `json:"birth_date"`
}

func toPersonResponse(p *model.Person) personResponse {
	return personResponse{
		ID:              p.ID,
		PersonnelNumber: p.PersonnelNumber,
		FullName:        p.FullName(),
		BirthDate:       p.BirthDate.Format(model.DateLayout),
	}
}

// statsHandler serves bot totals for dashboards.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := statsUC.Totals(r.Context())
		if err != nil {
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func peopleListHandler(personUC usecase.PersonUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		people, err := personUC.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list people", http.StatusInternalServerError)
			return
		}
		out := make([]personResponse, 0, len(people))
		for _, p := range people {
			out = append(out, toPersonResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func personCreateHandler(personUC usecase.PersonUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req personCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		person, err := personUC.Add(r.Context(), req.PersonnelNumber, req.FirstName, req.Patronymic, req.BirthDate)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrDuplicatePersonnelNumber):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidDate):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "Failed to create person", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toPersonResponse(person))
	}
}

func personGetHandler(personUC usecase.PersonUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		person, err := personUC.Find(r.Context(), chi.URLParam(r, "personnelNumber"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Person not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get person", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toPersonResponse(person))
	}
}

func personDeleteHandler(personUC usecase.PersonUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := personUC.Remove(r.Context(), chi.URLParam(r, "personnelNumber"))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Person not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrPersonLinked):
				http.Error(w, "Person has a registered account", http.StatusConflict)
			default:
				http.Error(w, "Failed to delete person", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type fundResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Deadline    string `json:"deadline"`
	Target      int64  `json:"target"`
	Accumulated int64  `json:"accumulated"`
	Closed      bool   `json:"closed"`
}

func fundsListHandler(fundUC usecase.FundUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		funds, err := fundUC.ListOpen(r.Context())
		if err != nil {
			http.Error(w, "Failed to list funds", http.StatusInternalServerError)
			return
		}
		out := make([]fundResponse, 0, len(funds))
		for _, f := range funds {
			out = append(out, fundResponse{
				ID:          f.ID,
				Kind:        string(f.Kind),
				Title:       f.Title,
				Deadline:    f.Deadline.Format(model.DateLayout),
				Target:      f.Target,
				Accumulated: f.Accumulated,
				Closed:      f.Closed,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type donationResponse struct {
	DonorID   string `json:"donor_id"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type fundStatusResponse struct {
	FundID      string             `json:"fund_id"`
	Title       string             `json:"title"`
	Kind        string             `json:"kind"`
	Target      int64              `json:"target"`
	Accumulated int64              `json:"accumulated"`
	Remaining   int64              `json:"remaining"`
	DonorCount  int                `json:"donor_count"`
	DaysLeft    int                `json:"days_left"`
	Closed      bool               `json:"closed"`
	Donations   []donationResponse `json:"donations"`
}

func fundStatusHandler(fundUC usecase.FundUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fundID := chi.URLParam(r, "fundID")
		status, err := fundUC.Status(r.Context(), fundID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Fund not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get fund status", http.StatusInternalServerError)
			return
		}
		donations, err := fundUC.Donations(r.Context(), fundID)
		if err != nil {
			http.Error(w, "Failed to list donations", http.StatusInternalServerError)
			return
		}
		out := make([]donationResponse, 0, len(donations))
		for _, d := range donations {
			out = append(out, donationResponse{
				DonorID:   d.DonorID,
				Amount:    d.Amount,
				CreatedAt: d.CreatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, fundStatusResponse{
			FundID:      status.FundID,
			Title:       status.Title,
			Kind:        string(status.Kind),
			Target:      status.Target,
			Accumulated: status.Accumulated,
			Remaining:   status.Remaining,
			DonorCount:  status.DonorCount,
			DaysLeft:    status.DaysLeft,
			Closed:      status.Closed,
			Donations:   out,
		})
	}
}

type purgeRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

// purgeHandler deletes notifications older than the requested age,
// delivered or not.
func purgeHandler(notifUC usecase.NotificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.OlderThanDays <= 0 {
			http.Error(w, "older_than_days must be positive", http.StatusBadRequest)
			return
		}
		cutoff := time.Now().AddDate(0, 0, -req.OlderThanDays)
		deleted, err := notifUC.PurgeOlderThan(r.Context(), cutoff)
		if err != nil {
			http.Error(w, "Failed to purge notifications", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, purgeResponse{Deleted: deleted})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
