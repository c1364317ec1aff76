package restserver

import (
	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
)

// ProfileList is the response of the profile listing endpoint.
type ProfileList struct {
	Profiles []storage.Summary `json:"profiles"`
}

// CheckDescription describes one test of the battery.
type CheckDescription struct {
	Name        qc.Check `json:"name"`
	Contributes bool     `json:"contributes"`
}

type CheckList struct {
	Checks []CheckDescription `json:"checks"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status  string `json:"status"`
	Storage bool   `json:"storage"`
}
