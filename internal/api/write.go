package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-linewriter/internal/ingest"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/pipeline"
)

// handleWrite decodes a point document and adds every point to the pipeline.
//
// With ?sync=true the pipeline is flushed before responding, and a delivery
// failure that could not be spooled is reported as 502.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	points, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	if err := s.writer.Add(r.Context(), points...); err != nil {
		if errors.Is(err, pipeline.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "writer is shutting down")
			return
		}
		s.logger.Error("adding points", "error", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusBadGateway, ErrCodeDelivery, err.Error())
		return
	}

	if sync, _ := strconv.ParseBool(r.URL.Query().Get("sync")); sync {
		if err := s.writer.Flush(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, ErrCodeDelivery, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": len(points),
	})
}

// handleRender returns the line protocol for a point document without
// delivering it.
//
// The precision query parameter picks the timestamp unit. Without it the
// batch's aggregate precision is used, so no timestamp loses resolution.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	precision := lineprotocol.PrecisionNone
	if raw := r.URL.Query().Get("precision"); raw != "" {
		p, err := lineprotocol.ParsePrecision(raw)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		precision = p
	}

	points, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	batch := lineprotocol.BatchFromPoints(points)
	if !precision.IsResolved() {
		precision = batch.Precision()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Precision", precision.String())
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	io.WriteString(w, batch.ToLineProtocolWithPrecision(precision)+"\n")
}

// decodeBody reads and decodes the request body, writing the error response
// itself when decoding fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) ([]lineprotocol.Point, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return nil, false
		}
		writeBadRequest(w, "reading request body: "+err.Error())
		return nil, false
	}

	points, err := s.decoder.Decode(body)
	if err != nil {
		var derr *ingest.DecodeError
		if errors.As(err, &derr) {
			writeValidationError(w, fmt.Sprintf("%d points rejected", len(derr.Points)), pointDetails(derr))
			return nil, false
		}
		writeBadRequest(w, err.Error())
		return nil, false
	}
	return points, true
}

func pointDetails(derr *ingest.DecodeError) []PointDetail {
	details := make([]PointDetail, len(derr.Points))
	for i, pe := range derr.Points {
		msgs := make([]string, len(pe.Errs))
		for j, e := range pe.Errs {
			msgs[j] = e.Error()
		}
		details[i] = PointDetail{Index: pe.Index, Measurement: pe.Measurement, Errors: msgs}
	}
	return details
}
