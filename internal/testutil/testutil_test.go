package testutil

import (
	"io"
	"net/http"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, io.EOF)
}

func TestVecNear(t *testing.T) {
	t.Parallel()

	a := r3.Vec{X: 1, Y: 2, Z: 3}
	if !VecNear(a, r3.Vec{X: 1.0005, Y: 2, Z: 2.9995}, 1e-3) {
		t.Error("expected vectors within tolerance")
	}
	if VecNear(a, r3.Vec{X: 1, Y: 2.1, Z: 3}, 1e-3) {
		t.Error("expected vectors outside tolerance")
	}
	AssertVecNear(t, a, a, 0)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodGet, "/api/snapshot")
	if req.Method != http.MethodGet || req.URL.Path != "/api/snapshot" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}

	req = NewTestRequest(http.MethodPost, "/api/markers", `{"x":1}`)
	body, err := io.ReadAll(req.Body)
	AssertNoError(t, err)
	if string(body) != `{"x":1}` {
		t.Errorf("body = %q", body)
	}
}

func TestNewTestRecorder(t *testing.T) {
	t.Parallel()

	rec := NewTestRecorder()
	rec.WriteHeader(http.StatusTeapot)
	AssertStatusCode(t, rec.Code, http.StatusTeapot)
}
