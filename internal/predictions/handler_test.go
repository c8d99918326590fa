package predictions_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/pestwatch/internal/predictions"
	"github.com/JaimeStill/pestwatch/internal/records"
	"github.com/JaimeStill/pestwatch/pkg/handlers"
	"github.com/JaimeStill/pestwatch/pkg/routes"
)

func serve(t *testing.T, f fixture) *httptest.Server {
	t.Helper()
	h := f.sys.Handler()

	mux := http.NewServeMux()
	routes.Register(mux, routes.Group{
		Prefix: "/api",
		Children: []routes.Group{
			h.Routes(),
			{Prefix: "/admin", Children: []routes.Group{h.AdminRoutes()}},
		},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/predict", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerPredict(t *testing.T) {
	f := setup(t, options{})
	srv := serve(t, f)

	resp := upload(t, srv.URL, "bug.jpg", image, map[string]string{
		"rsbsaNumber": "RSBSA-001",
		"fullName":    "Juan Dela Cruz",
		"barangay":    "San Isidro",
		"crop":        "rice",
		"area":        "1.5",
		"contact":     "09171234567",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[predictions.Result](t, resp)
	assert.Equal(t, "snail", res.Label)
	assert.Regexp(t, storedName, res.StoredFilename)

	t.Run("history", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/api/history/RSBSA-001")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		items := decode[[]records.Summary](t, resp)
		require.Len(t, items, 1)
		assert.Equal(t, res.RecordID, items[0].ID)
	})

	t.Run("artifact", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/api/records/"+res.StoredFilename+"/artifact")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

		var got bytes.Buffer
		_, err := got.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, image, got.Bytes())
	})

	t.Run("approve", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/admin/approve/"+res.RecordID.String()+"/bogus")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode[predictions.ReviewResult](t, resp)
		assert.Equal(t, records.StatusApproved, out.Status)
		require.NotNil(t, out.Label)
		assert.Equal(t, "unknown", *out.Label)
	})

	t.Run("reject", func(t *testing.T) {
		resp := do(t, http.MethodPost, srv.URL+"/api/admin/reject/"+res.StoredFilename)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode[predictions.ReviewResult](t, resp)
		assert.Equal(t, records.StatusRejected, out.Status)
		assert.Nil(t, out.Label)
	})

	t.Run("stats", func(t *testing.T) {
		resp := do(t, http.MethodGet, srv.URL+"/api/admin/stats")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		stats := decode[records.Stats](t, resp)
		assert.Equal(t, records.Stats{Total: 1, Rejected: 1, DistinctSubmitters: 1}, stats)
	})

	t.Run("delete", func(t *testing.T) {
		resp := do(t, http.MethodDelete, srv.URL+"/api/admin/records/"+res.RecordID.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]bool{"deleted": true}, decode[map[string]bool](t, resp))

		resp = do(t, http.MethodDelete, srv.URL+"/api/admin/records/"+res.RecordID.String())
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		body := decode[handlers.ErrorResponse](t, resp)
		assert.Equal(t, predictions.KindNotFound, body.Kind)
		assert.Equal(t, records.ErrNotFound.Error(), body.Error)
	})
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     options
		filename string
		data     []byte
		status   int
		kind     string
		message  string
	}{
		{
			name:    "no file",
			status:  http.StatusBadRequest,
			kind:    predictions.KindValidation,
			message: predictions.ErrNoFile.Error(),
		},
		{
			name:     "unsupported extension",
			filename: "bug.gif",
			data:     image,
			status:   http.StatusBadRequest,
			kind:     predictions.KindValidation,
			message:  predictions.ErrUnsupportedExtension.Error(),
		},
		{
			name:     "empty file",
			filename: "bug.jpg",
			status:   http.StatusBadRequest,
			kind:     predictions.KindValidation,
			message:  predictions.ErrEmptyFile.Error(),
		},
		{
			name:     "too large",
			opts:     options{cfg: &predictions.Config{MaxUploadSize: "1KB"}},
			filename: "bug.jpg",
			data:     bytes.Repeat([]byte{0xff}, 2048),
			status:   http.StatusRequestEntityTooLarge,
			kind:     predictions.KindValidation,
			message:  predictions.ErrFileTooLarge.Error(),
		},
		{
			name:     "prediction failure hides detail",
			opts:     options{predictor: &stubPredictor{err: assert.AnError}},
			filename: "bug.jpg",
			data:     image,
			status:   http.StatusBadGateway,
			kind:     predictions.KindPrediction,
			message:  predictions.ErrPrediction.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.opts)
			srv := serve(t, f)

			resp := upload(t, srv.URL, tt.filename, tt.data, map[string]string{"rsbsaNumber": "RSBSA-001"})
			require.Equal(t, tt.status, resp.StatusCode)

			body := decode[handlers.ErrorResponse](t, resp)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.message, body.Error)
			assert.Zero(t, f.total(t))
		})
	}
}

func TestHandlerInvalidID(t *testing.T) {
	srv := serve(t, setup(t, options{}))

	resp := do(t, http.MethodDelete, srv.URL+"/api/admin/records/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, predictions.KindValidation, decode[handlers.ErrorResponse](t, resp).Kind)
}
