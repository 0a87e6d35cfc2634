package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/orderdesk/internal/scanning"
)

// maxUploadSize caps uploaded PDFs
const maxUploadSize = 10 << 20

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	setCORSHeaders(w)
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateOrder):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOrder), errors.Is(err, ErrUnknownStrategy), errors.Is(err, scanning.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scanning.ErrRemoteExtraction):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract reads an uploaded PDF into a draft order
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 10MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a PDF to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 10MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	draft, err := s.service.ProcessUpload(r.Context(), header.Filename, data, r.URL.Query().Get("strategy"))
	if err != nil {
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		status := statusFor(err)
		body := map[string]string{"error": err.Error()}
		if status == http.StatusBadGateway || status == http.StatusGatewayTimeout {
			body["fallback"] = "regex"
		}
		setCORSHeaders(w)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

// decodeInput reads an edited draft from the request body
func decodeInput(r *http.Request) (Input, error) {
	var in Input
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&in); err != nil {
		return Input{}, err
	}
	return in, nil
}

// handleCreateOrder confirms an edited draft
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.service.CreateOrder(r.Context(), in)
	if err != nil {
		slog.Error("Error creating order", "number", in.Order.Number, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// handleRenderPreview renders an edited draft without saving it
func (s *Server) handleRenderPreview(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pdf, err := s.service.RenderPreview(r.Context(), in)
	if err != nil {
		slog.Error("Error rendering preview", "error", err)
		writeError(w, statusFor(err), "Error rendering PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="preview.pdf"`)
	w.Write(pdf)
}

// handleListOrders returns all orders
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.ListOrders()
	if err != nil {
		slog.Error("Error listing orders", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// handleGetOrder returns a single order
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.service.GetOrder(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// handleGetOrderPDF returns the stored PDF of an order
func (s *Server) handleGetOrderPDF(w http.ResponseWriter, r *http.Request) {
	data, order, err := s.service.GetOrderPDF(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="pedido_%s.pdf"`, sanitizeFilename(order.Number, "sem_numero")))
	w.Write(data)
}

// handleDeleteOrder deletes an order
func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteOrder(r.PathValue("id")); err != nil {
		slog.Error("Error deleting order", "error", err)
		writeError(w, statusFor(err), "Error deleting order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListStaff returns all staff members
func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListStaff()
	if err != nil {
		slog.Error("Error listing staff", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// handleSaveStaff creates or updates a staff member
func (s *Server) handleSaveStaff(w http.ResponseWriter, r *http.Request) {
	var staff Staff
	if err := json.NewDecoder(r.Body).Decode(&staff); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.service.SaveStaff(staff)
	if err != nil {
		slog.Error("Error saving staff", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeleteStaff deletes a staff member
func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStaff(r.PathValue("id")); err != nil {
		slog.Error("Error deleting staff", "error", err)
		writeError(w, statusFor(err), "Error deleting staff")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parsePeriod reads the optional from and to query parameters (YYYY-MM-DD)
func parsePeriod(r *http.Request) (Period, error) {
	var period Period
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &period.From},
		{"to", &period.To},
	} {
		value := r.URL.Query().Get(p.name)
		if value == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return Period{}, fmt.Errorf("invalid %s date %q", p.name, value)
		}
		*p.dst = t
	}
	return period, nil
}

// handleCommissionReport returns the commissions for a period
func (s *Server) handleCommissionReport(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.service.CommissionReport(period)
	if err != nil {
		slog.Error("Error building commission report", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExportXLSX returns the orders and commissions of a period as a workbook
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.ExportOrdersXLSX(period)
	if err != nil {
		slog.Error("Error exporting orders", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pedidos.xlsx"`)
	w.Write(data)
}
