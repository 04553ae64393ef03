package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String() + "/api/",
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestBearerTokenReadAtRequestTime(t *testing.T) {
	var seen atomic.Value
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing X-Request-ID")
		}
		_ = json.NewEncoder(w).Encode([]HistoryEntry{})
	}))
	defer srv.Close()

	tok := &mutableToken{}
	c := NewClient(srv.URL, 0, tok, nil)

	tok.v = "abc"
	if _, err := c.History(testCtx(t)); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := seen.Load().(string); got != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", got)
	}

	tok.v = ""
	if _, err := c.History(testCtx(t)); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := seen.Load().(string); got != "" {
		t.Fatalf("expected no Authorization header after logout, got %q", got)
	}
}

type mutableToken struct{ v string }

func (m *mutableToken) Token() string { return m.v }

func TestLoginSendsNoBearerAndReturnsToken(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login/" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		var in credentials
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Username != "ana" || in.Password != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, staticToken("stale"), nil)
	tok, err := c.Login(testCtx(t), "ana", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok != "jwt-1" {
		t.Fatalf("unexpected token %q", tok)
	}

	_, err = c.Login(testCtx(t), "ana", "nope")
	var bad *BadRequestError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadRequestError, got %T %v", err, err)
	}
	if bad.Message != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", bad.Message)
	}
}

func TestUploadMultipartField(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload/" {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "File missing"})
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(UploadResult{
			Message:   "Uploaded & analyzed",
			DatasetID: 7,
			Filename:  hdr.Filename + ":" + string(b),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, staticToken("t"), nil)
	res, err := c.Upload(testCtx(t), "/tmp/data/pumps.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.DatasetID != 7 || res.Filename != "pumps.csv:a,b\n1,2\n" {
		t.Fatalf("unexpected upload result: %+v", res)
	}
}

func TestSummaryNotFoundIsNoSummary(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "No datasets yet"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil, nil)
	_, err := c.Summary(testCtx(t))
	if !errors.Is(err, ErrNoSummary) {
		t.Fatalf("expected ErrNoSummary, got %v", err)
	}
}

func TestSummaryDecodesAllSections(t *testing.T) {
	body := `{"total_equipment":3,"avg_flowrate":20.5,"avg_pressure":5,"avg_temperature":100,
	"type_distribution":{"Pump":2,"Valve":1},
	"correlation":{"Flowrate":{"Flowrate":1,"Pressure":0.5}},
	"outliers":[{"Equipment Name":"P-9","Flowrate":99}],
	"typewise_averages":{"Pump":{"Flowrate":10.5}}}`
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	s, err := NewClient(srv.URL, 0, nil, nil).Summary(testCtx(t))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalEquipment != 3 || s.TypeDistribution["Pump"] != 2 || s.Correlation["Flowrate"]["Pressure"] != 0.5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.Outliers) != 1 || s.TypewiseAverages["Pump"]["Flowrate"] != 10.5 {
		t.Fatalf("unexpected outliers/typewise: %+v", s)
	}
}

func TestHistoryKeepsServerOrder(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]HistoryEntry{{ID: 3}, {ID: 9}, {ID: 1}})
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, 0, nil, nil).History(testCtx(t))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h) != 3 || h[0].ID != 3 || h[1].ID != 9 || h[2].ID != 1 {
		t.Fatalf("order changed: %+v", h)
	}
}

func TestDatasetRowsAndPDF(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dataset/4/data/":
			_, _ = io.WriteString(w, `{"columns":["Equipment Name","Flowrate"],"rows":[{"Equipment Name":"P-1","Flowrate":12.5}]}`)
		case "/api/generate_pdf/4/":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, "%PDF-1.4 fake")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, staticToken("t"), nil)
	tbl, err := c.DatasetRows(testCtx(t), 4)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(tbl.Columns) != 2 || len(tbl.Rows) != 1 {
		t.Fatalf("unexpected table: %+v", tbl)
	}
	if f, ok := Float(tbl.Rows[0]["Flowrate"]); !ok || f != 12.5 {
		t.Fatalf("unexpected flowrate: %v", tbl.Rows[0]["Flowrate"])
	}

	var buf bytes.Buffer
	n, err := c.DownloadPDF(testCtx(t), 4, &buf)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if n != int64(buf.Len()) || !strings.HasPrefix(buf.String(), "%PDF") {
		t.Fatalf("unexpected pdf stream: n=%d %q", n, buf.String())
	}

	_, err = c.DatasetRows(testCtx(t), 5)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, nil, nil).Upload(testCtx(t), "a.csv", strings.NewReader("x"))
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
}

func TestUnreachableService(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, err = NewClient("http://"+addr+"/api/", time.Second, nil, nil).History(testCtx(t))
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
	if ue.Host != addr {
		t.Fatalf("expected host %s, got %s", addr, ue.Host)
	}
}

func TestFloatAndText(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"30", 30, true},
		{" 2.5 ", 2.5, true},
		{12.0, 12, true},
		{"n/a", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := Float(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("Float(%v) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
	if Text(12.5) != "12.5" || Text(nil) != "" || Text("x") != "x" {
		t.Fatalf("unexpected Text formatting")
	}
}
