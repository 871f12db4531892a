package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/carepath/carepath/internal/domain"
)

// Doctor is a directory entry with its hospital and specialization
// denormalized by the backend.
type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	SpecialtyID    int    `json:"specialty_id"`
	Hospital       string `json:"hospital"`
	ContactNo      string `json:"contact_no"`
}

// Doctors lists the full directory.
func (c *Client) Doctors(ctx context.Context) ([]Doctor, error) {
	var resp struct {
		Doctors []Doctor `json:"doctors"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/doctors", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Doctors, nil
}

// DoctorByID fetches a single directory entry.
func (c *Client) DoctorByID(ctx context.Context, id string) (*Doctor, error) {
	var doc Doctor
	path := "/user/doctors/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &doc); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.NewNotFoundError("doctor", id)
		}
		return nil, err
	}
	return &doc, nil
}

// DoctorsBySpecialty lists doctors treating a predicted specialty. The
// backend requires a bearer token for this route.
func (c *Client) DoctorsBySpecialty(ctx context.Context, token string, specialtyID int) ([]Doctor, error) {
	var resp struct {
		Doctors []Doctor `json:"doctors"`
	}
	path := fmt.Sprintf("/user/doctors/specialty/%d", specialtyID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, domain.NewAuthRequiredError("view recommended doctors")
		}
		return nil, err
	}
	return resp.Doctors, nil
}
