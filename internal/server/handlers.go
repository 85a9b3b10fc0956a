package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seqworks/funcenrich/internal/cog"
	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/output"
	"github.com/seqworks/funcenrich/internal/pipeline"
)

// maxUploadBytes caps multipart uploads at 64 MiB.
const maxUploadBytes = 64 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// HealthCheck reports liveness.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// CreateSession accepts a multipart upload with a "file" field holding
// the DESeq2 results table and an optional "cog_file" annotation table,
// parses both, and returns the new session ID.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "parsing upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	table, err := deseq.Parse(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parsing results table: "+err.Error())
		return
	}

	var cogUpload map[string][]string
	if cogFile, _, err := r.FormFile("cog_file"); err == nil {
		defer cogFile.Close()
		cogUpload, err = cog.ParseAnnotation(cogFile)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parsing COG annotation: "+err.Error())
			return
		}
	}

	sess := s.sessions.create(header.Filename, table, cogUpload)
	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("filename", sess.Filename),
		zap.Int("genes", len(table.Records)))

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"filename":   sess.Filename,
		"genes":      len(table.Records),
	})
}

// SessionStatus returns a JSON summary of a session.
func (s *Server) SessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	results, lastRunAt := sess.run()
	resp := map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"filename":   sess.Filename,
		"genes":      len(sess.Table.Records),
		"analyzed":   results != nil,
	}
	if results != nil {
		resp["last_run_at"] = lastRunAt.Format(time.RFC3339)
		resp["up"] = len(results.UpIDs)
		resp["down"] = len(results.DownIDs)
		resp["de_total"] = len(results.AllIDs)
		resp["mapped"] = len(results.Mapping)
		resp["warnings"] = results.Warnings
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteSession discards a session.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.get(id); !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	s.sessions.delete(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// RunAnalysis runs the pipeline for a session with parameters from the
// query string: org (required), padj, log2fc, min_set_size,
// max_set_size, permutations, seed, cog_source.
func (s *Server) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	params, err := s.paramsFromQuery(r, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.pipeline.Run(sess.Table, params)
	if err != nil {
		writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}

	sess.setResults(params, results)

	s.logger.Info("analysis complete",
		zap.String("session", sess.ID),
		zap.String("org", params.Organism),
		zap.Int("ora_up", len(results.ORAUp)),
		zap.Int("ora_down", len(results.ORADown)),
		zap.Int("gsea", len(results.GSEA)))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"up":       len(results.UpIDs),
		"down":     len(results.DownIDs),
		"de_total": len(results.AllIDs),
		"mapped":   len(results.Mapping),
		"ora_up":   len(results.ORAUp),
		"ora_down": len(results.ORADown),
		"ora_all":  len(results.ORAAll),
		"gsea":     len(results.GSEA),
		"warnings": results.Warnings,
	})
}

func (s *Server) paramsFromQuery(r *http.Request, sess *Session) (pipeline.Params, error) {
	params := pipeline.DefaultParams()
	q := r.URL.Query()

	params.Organism = q.Get("org")
	if params.Organism == "" {
		return params, fmt.Errorf("missing org parameter")
	}

	var err error
	if params.PadjCutoff, err = floatParam(q.Get("padj"), params.PadjCutoff); err != nil {
		return params, fmt.Errorf("bad padj: %w", err)
	}
	if params.Log2FCCutoff, err = floatParam(q.Get("log2fc"), params.Log2FCCutoff); err != nil {
		return params, fmt.Errorf("bad log2fc: %w", err)
	}
	if params.MinSetSize, err = intParam(q.Get("min_set_size"), params.MinSetSize); err != nil {
		return params, fmt.Errorf("bad min_set_size: %w", err)
	}
	if params.MaxSetSize, err = intParam(q.Get("max_set_size"), params.MaxSetSize); err != nil {
		return params, fmt.Errorf("bad max_set_size: %w", err)
	}
	if params.Permutations, err = intParam(q.Get("permutations"), params.Permutations); err != nil {
		return params, fmt.Errorf("bad permutations: %w", err)
	}
	if seed, err := intParam(q.Get("seed"), int(params.Seed)); err != nil {
		return params, fmt.Errorf("bad seed: %w", err)
	} else {
		params.Seed = int64(seed)
	}

	source, err := cog.ParseSource(q.Get("cog_source"))
	if err != nil {
		return params, err
	}
	params.COGSource = source
	if source == cog.SourceFile {
		if sess.COGUpload == nil {
			return params, fmt.Errorf("cog_source=file requires a cog_file upload with the session")
		}
		params.COGMapping = sess.COGUpload
	}

	return params, nil
}

func floatParam(v string, fallback float64) (float64, error) {
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func intParam(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// DownloadResult streams one result table as TSV. Table names: genes,
// ora_up, ora_down, ora_all, gsea, cog_dist, cog_up, cog_down, cog_all.
func (s *Server) DownloadResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	table := r.PathValue("table")

	switch table {
	case "genes", "ora_up", "ora_down", "ora_all", "gsea",
		"cog_dist", "cog_up", "cog_down", "cog_all":
	default:
		writeError(w, http.StatusNotFound, "unknown result table "+table)
		return
	}

	results, _ := sess.run()
	if table != "genes" && results == nil {
		writeError(w, http.StatusConflict, "analysis has not been run for this session")
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", table+".tsv"))

	var err error
	switch table {
	case "genes":
		err = output.NewGeneTableWriter(w).WriteAll(sess.Table.Records)
	case "ora_up":
		err = output.NewORAWriter(w).WriteAll(results.ORAUp)
	case "ora_down":
		err = output.NewORAWriter(w).WriteAll(results.ORADown)
	case "ora_all":
		err = output.NewORAWriter(w).WriteAll(results.ORAAll)
	case "gsea":
		err = output.NewGSEAWriter(w).WriteAll(results.GSEA)
	case "cog_dist":
		err = output.NewCOGDistributionWriter(w).WriteAll(results.COGDistribution)
	case "cog_up":
		err = output.NewCOGEnrichmentWriter(w).WriteAll(results.COGUp)
	case "cog_down":
		err = output.NewCOGEnrichmentWriter(w).WriteAll(results.COGDown)
	case "cog_all":
		err = output.NewCOGEnrichmentWriter(w).WriteAll(results.COGAll)
	}
	if err != nil {
		s.logger.Warn("result download failed",
			zap.String("session", sess.ID),
			zap.String("table", table),
			zap.Error(err))
	}
}
