package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		if err != nil {
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = response.Write(body)
	})
}

func TestUngzipRequest(t *testing.T) {
	const payload = `{"email":"a@b.com","password":"secret"}`

	testCases := []struct {
		name         string
		body         []byte
		encoding     string
		expectedCode int
		expectedBody string
	}{
		{name: "gzipped", body: gzipString(t, payload), encoding: "gzip", expectedCode: http.StatusOK, expectedBody: payload},
		{name: "plain", body: []byte(payload), encoding: "", expectedCode: http.StatusOK, expectedBody: payload},
		{name: "broken gzip", body: []byte(payload), encoding: "gzip", expectedCode: http.StatusBadRequest, expectedBody: "Invalid request body."},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(testCase.body))
			if testCase.encoding != "" {
				request.Header.Set("Content-Encoding", testCase.encoding)
			}
			recorder := httptest.NewRecorder()

			UngzipRequest(echoHandler()).ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
			assert.True(t, strings.Contains(recorder.Body.String(), testCase.expectedBody), recorder.Body.String())
		})
	}
}
