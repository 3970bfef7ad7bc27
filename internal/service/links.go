package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Purplemerit/linkshortner-sub001/internal/database"
	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

const qrSize = 256

type createLinkBody struct {
	URL       string     `json:"url"`
	Code      string     `json:"code,omitempty"`
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type updateLinkBody struct {
	URL       *string    `json:"url,omitempty"`
	Active    *bool      `json:"active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// ClearExpiry and ClearPassword drop the respective gate entirely.
	ClearExpiry   bool    `json:"clear_expiry,omitempty"`
	Password      *string `json:"password,omitempty"`
	ClearPassword bool    `json:"clear_password,omitempty"`
}

type linkResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Protected   bool       `json:"protected"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *Server) linkResponse(link *types.Link) linkResponse {
	resp := linkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    s.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		Active:      link.Active,
		Protected:   link.PasswordProtected(),
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
	}
	if link.ExpiresAt.Valid {
		t := link.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	return resp
}

func (s *Server) handlerCreateLink(w http.ResponseWriter, r *http.Request) {
	var body createLinkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	link, err := s.shortener.CreateShortLink(r.Context(), CreateLinkRequest{
		OriginalURL: body.URL,
		CustomCode:  body.Code,
		Password:    body.Password,
		ExpiresAt:   body.ExpiresAt,
	})
	switch {
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrInvalidCharacter):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, database.ErrCodeTaken):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to create link")
		return
	}

	respondJSON(w, http.StatusCreated, s.linkResponse(link))
}

func (s *Server) handlerGetLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	link, err := s.shortener.GetLink(r.Context(), code)
	if errors.Is(err, database.ErrLinkNotFound) {
		respondError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load link")
		return
	}
	respondJSON(w, http.StatusOK, s.linkResponse(link))
}

func (s *Server) handlerUpdateLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var body updateLinkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	params := types.UpdateLinkParams{
		OriginalURL: body.URL,
		Active:      body.Active,
	}
	if body.ExpiresAt != nil {
		params.SetExpiresAt = true
		params.ExpiresAt.Time = *body.ExpiresAt
		params.ExpiresAt.Valid = true
	} else if body.ClearExpiry {
		params.SetExpiresAt = true
	}
	if body.Password != nil {
		params.SetPassword = true
		params.Password.String = *body.Password
		params.Password.Valid = *body.Password != ""
	} else if body.ClearPassword {
		params.SetPassword = true
	}

	link, err := s.shortener.UpdateLink(r.Context(), code, params)
	switch {
	case errors.Is(err, ErrInvalidURL):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, database.ErrLinkNotFound):
		respondError(w, http.StatusNotFound, "link not found")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to update link")
		return
	}
	respondJSON(w, http.StatusOK, s.linkResponse(link))
}

func (s *Server) handlerDeleteLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	err := s.shortener.DeleteLink(r.Context(), code)
	if errors.Is(err, database.ErrLinkNotFound) {
		respondError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	ShortCode string              `json:"short_code"`
	Clicks    int64               `json:"clicks"`
	Countries []types.CountryStat `json:"countries"`
	Devices   []types.DeviceStat  `json:"devices"`
}

// handlerLinkStats combines the durable counter from Postgres with the
// event breakdowns from ClickHouse. Breakdown failures degrade to empty
// lists; the counter is the source of truth.
func (s *Server) handlerLinkStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	clicksTotal, err := s.db.GetClicks(r.Context(), code)
	if errors.Is(err, database.ErrLinkNotFound) {
		respondError(w, http.StatusNotFound, "link not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	resp := statsResponse{
		ShortCode: code,
		Clicks:    clicksTotal,
		Countries: []types.CountryStat{},
		Devices:   []types.DeviceStat{},
	}
	if countries, err := s.analytics.ClicksByCountry(r.Context(), code); err == nil && countries != nil {
		resp.Countries = countries
	}
	if devices, err := s.analytics.ClicksByDevice(r.Context(), code); err == nil && devices != nil {
		resp.Devices = devices
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlerLinkQR(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if _, err := s.shortener.GetLink(r.Context(), code); err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			respondError(w, http.StatusNotFound, "link not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load link")
		return
	}

	png, err := qrcode.Encode(s.baseURL+"/"+code, qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
