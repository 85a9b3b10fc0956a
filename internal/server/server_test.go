package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqworks/funcenrich/internal/kegg"
)

// Synthetic organism "tst": twelve genes, two pathways of six.
func fakeKEGGClient(t *testing.T) *kegg.Client {
	t.Helper()

	var genes, links strings.Builder
	for i := 1; i <= 12; i++ {
		product := "hypothetical protein"
		if i <= 6 {
			product = "30S ribosomal protein"
		}
		fmt.Fprintf(&genes, "tst:G%02d\tCDS\t1..100\tgene%d; %s\n", i, i, product)
		pathway := "tst00020"
		if i <= 6 {
			pathway = "tst00010"
		}
		fmt.Fprintf(&links, "tst:G%02d\tpath:%s\n", i, pathway)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/list/tst", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(genes.String()))
	})
	mux.HandleFunc("/list/pathway/tst", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("path:tst00010\tRibosome - Test organism\n" +
			"path:tst00020\tGlycolysis - Test organism\n"))
	})
	mux.HandleFunc("/link/pathway/tst", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(links.String()))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return kegg.NewClientWithBaseURL(srv.URL)
}

func resultsUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	var table strings.Builder
	table.WriteString("log2FoldChange\tpadj\tAttributes\n")
	for i := 1; i <= 12; i++ {
		lfc, padj, product := 0.1, 0.9, "hypothetical protein"
		if i <= 4 {
			lfc, padj, product = 3.0, 1e-6, "30S ribosomal protein"
		}
		fmt.Fprintf(&table, "%g\t%g\tlocus_tag=G%02d;product=%s\n", lfc, padj, i, product)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "results.tsv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(table.String()))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	body, contentType := resultsUpload(t)
	resp, err := http.Post(ts.URL+"/api/v1/session", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Success   bool   `json:"success"`
		SessionID string `json:"session_id"`
		Genes     int    `json:"genes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Success)
	assert.Equal(t, 12, created.Genes)
	require.NotEmpty(t, created.SessionID)
	return created.SessionID
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(fakeKEGGClient(t), nil, nil).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadRunDownload(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	// Before a run, session status shows no analysis.
	resp, err := http.Get(ts.URL + "/api/v1/session/" + id)
	require.NoError(t, err)
	var status struct {
		Analyzed bool `json:"analyzed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.False(t, status.Analyzed)

	// Run with a small permutation count to keep the test fast.
	resp, err = http.Post(ts.URL+"/api/v1/session/"+id+"/run?org=tst&permutations=50", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run struct {
		Success bool `json:"success"`
		Up      int  `json:"up"`
		ORAUp   int  `json:"ora_up"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.True(t, run.Success)
	assert.Equal(t, 4, run.Up)
	assert.GreaterOrEqual(t, run.ORAUp, 1)

	// Download the up-regulated ORA table.
	resp, err = http.Get(ts.URL + "/api/v1/session/" + id + "/result/ora_up")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/tab-separated-values", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "Pathway_ID\tDescription"))
	assert.True(t, strings.HasPrefix(lines[1], "tst00010\tRibosome"))
}

func TestDownloadGenesBeforeRun(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	// The parsed gene table is available without an analysis run.
	resp, err := http.Get(ts.URL + "/api/v1/session/" + id + "/result/genes")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Everything else is not.
	resp, err = http.Get(ts.URL + "/api/v1/session/" + id + "/result/gsea")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDownloadUnknownTable(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/session/" + id + "/result/volcano")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/session/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunRequiresOrg(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/api/v1/session/"+id+"/run", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunCOGFileWithoutUpload(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/api/v1/session/"+id+"/run?org=tst&cog_source=file", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSessionRejectsBadUpload(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "bad.tsv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("gene\tstat\nx\t1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/v1/session", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConcurrentRunAndDownload(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	// One run up front so downloads always have results to read.
	resp, err := http.Post(ts.URL+"/api/v1/session/"+id+"/run?org=tst&permutations=20", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Re-runs, status reads, and downloads against the same session must
	// be safe to interleave.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/api/v1/session/"+id+"/run?org=tst&permutations=20", "", nil)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/api/v1/session/" + id)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/api/v1/session/" + id + "/result/ora_up")
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/session/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/session/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
