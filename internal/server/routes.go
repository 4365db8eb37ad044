package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/agent"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/ingest"
)

// maxUploadBytes caps multipart invoice uploads.
const maxUploadBytes = 10 << 20

// RegisterRoutes mounts the claim and policy API routes.
func RegisterRoutes(r chi.Router, loop *agent.Loop, ingestor *ingest.Ingestor) {
	r.Route("/claims", func(r chi.Router) {
		r.Post("/process", handleProcess(loop))
		r.Post("/process-file", handleProcessFile(loop))
	})
	r.Route("/policies", func(r chi.Router) {
		r.Post("/ingest", handleIngest(ingestor))
	})
}

type processRequest struct {
	InvoiceText  string `json:"invoiceText"`
	PolicyNumber string `json:"policyNumber"`
	PatientName  string `json:"patientName"`
}

func handleProcess(loop *agent.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		runClaim(w, r, loop, req)
	}
}

// handleProcessFile accepts a multipart form with a plain-text invoice under
// "file" plus policyNumber and patientName fields. Only text uploads are
// supported.
func handleProcessFile(loop *agent.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		text, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}

		runClaim(w, r, loop, processRequest{
			InvoiceText:  string(text),
			PolicyNumber: r.FormValue("policyNumber"),
			PatientName:  r.FormValue("patientName"),
		})
	}
}

func runClaim(w http.ResponseWriter, r *http.Request, loop *agent.Loop, req processRequest) {
	if strings.TrimSpace(req.InvoiceText) == "" {
		writeError(w, http.StatusBadRequest, "invoiceText is required")
		return
	}
	if strings.TrimSpace(req.PolicyNumber) == "" {
		writeError(w, http.StatusBadRequest, "policyNumber is required")
		return
	}

	result, err := loop.Process(r.Context(), req.InvoiceText, req.PolicyNumber, req.PatientName)
	if err != nil {
		if errors.Is(err, adjudicate.ErrPolicyNotFound) {
			writeError(w, http.StatusNotFound, "policy not found: "+req.PolicyNumber)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type ingestRequest struct {
	PolicyID     string `json:"policyId"`
	PolicyNumber string `json:"policyNumber"`
	CustomerID   string `json:"customerId"`
	Text         string `json:"text"`
}

func handleIngest(ingestor *ingest.Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		chunks, err := ingestor.Ingest(r.Context(), ingest.Request{
			PolicyID:     req.PolicyID,
			PolicyNumber: req.PolicyNumber,
			CustomerID:   req.CustomerID,
			SourceFile:   "api",
			Text:         req.Text,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"policyNumber": req.PolicyNumber,
			"chunks":       chunks,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
