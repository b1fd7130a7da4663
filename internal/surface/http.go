package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/san-kum/cosim/internal/cosim"
)

type HTTPConfig struct {
	Addr    string
	RunID   string
	Label   string
	Ref     cosim.ValueRef
	Min     float64
	Max     float64
	Step    float64
	Initial float64
	Steps   int
}

// Status is the body of GET /api/status.
type Status struct {
	RunID    string            `json:"run_id"`
	Steps    int               `json:"steps"`
	Total    int               `json:"total"`
	Last     *cosim.StepResult `json:"last,omitempty"`
	Value    *float64          `json:"value,omitempty"`
	Warnings int               `json:"warnings"`
	LastWarn string            `json:"last_warning,omitempty"`
}

type paramRequest struct {
	Value *float64 `json:"value"`
}

// HTTP serves a small control page and JSON API. It is also a Reporter and
// WarningSink, feeding the status endpoint.
type HTTP struct {
	cfg     HTTPConfig
	mailbox *cosim.Mailbox
	logger  *zap.Logger
	router  *mux.Router

	sendMu sync.Mutex

	mu     sync.RWMutex
	status Status
	addr   string
}

func NewHTTP(cfg HTTPConfig, mb *cosim.Mailbox, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Label == "" {
		cfg.Label = defaultLabel
	}
	h := &HTTP{
		cfg:     cfg,
		mailbox: mb,
		logger:  logger,
		status:  Status{RunID: cfg.RunID, Total: cfg.Steps},
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/params/{ref:[0-9]+}", h.setParam).Methods(http.MethodPost)
	r.HandleFunc("/api/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/", h.page).Methods(http.MethodGet)
	h.router = r
	return h
}

func (h *HTTP) Handler() http.Handler { return h.router }

func (h *HTTP) Report(r cosim.StepResult) {
	h.mu.Lock()
	h.status.Steps++
	h.status.Last = &r
	h.mu.Unlock()
}

func (h *HTTP) Warn(err error) {
	h.mu.Lock()
	h.status.Warnings++
	h.status.LastWarn = err.Error()
	h.mu.Unlock()
}

func (h *HTTP) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// URL returns the address of the control page once Run is listening.
func (h *HTTP) URL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.addr == "" {
		return ""
	}
	return "http://" + h.addr + "/"
}

// Open launches the control page in the default browser.
func (h *HTTP) Open() error {
	u := h.URL()
	if u == "" {
		return errors.New("surface: http server is not listening")
	}
	return browser.OpenURL(u)
}

// Listen binds the configured address. Call Serve afterwards.
func (h *HTTP) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()
	h.logger.Info("control surface listening", zap.String("url", h.URL()))
	return ln, nil
}

// Serve handles requests on ln until ctx is done.
func (h *HTTP) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (h *HTTP) Run(ctx context.Context) error {
	ln, err := h.Listen()
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

func (h *HTTP) setParam(w http.ResponseWriter, r *http.Request) {
	ref, err := strconv.ParseUint(mux.Vars(r)["ref"], 10, 32)
	if err != nil {
		httpError(w, http.StatusBadRequest, "bad value reference")
		return
	}

	value, err := requestValue(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := cosim.ParameterUpdate{Ref: cosim.ValueRef(ref), Value: value}
	h.sendMu.Lock()
	replaced := h.mailbox.Send(u)
	h.sendMu.Unlock()

	h.mu.Lock()
	h.status.Value = &value
	h.mu.Unlock()

	h.logger.Debug("update queued",
		zap.Uint32("ref", uint32(u.Ref)),
		zap.Float64("value", value),
		zap.Bool("replaced", replaced))

	writeJSON(w, http.StatusAccepted, map[string]any{"ref": u.Ref, "value": value, "replaced": replaced})
}

func requestValue(r *http.Request) (float64, error) {
	if q := r.URL.Query().Get("value"); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil || !finite(v) {
			return 0, fmt.Errorf("bad value %q", q)
		}
		return v, nil
	}

	var req paramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, fmt.Errorf("bad body: %v", err)
	}
	if req.Value == nil {
		return 0, errors.New("missing value")
	}
	if !finite(*req.Value) {
		return 0, errors.New("value must be finite")
	}
	return *req.Value, nil
}

func (h *HTTP) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *HTTP) page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, h.cfg); err != nil {
		h.logger.Warn("render page", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>cosim {{.RunID}}</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; padding: 2em; }
input[type=range] { width: 30em; }
#out { color: #5fd7af; font-size: 1.2em; }
</style>
</head>
<body>
<h2>cosim run {{.RunID}}</h2>
<label>{{.Label}} <input id="slider" type="range" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Initial}}"></label>
<span id="value">{{.Initial}}</span>
<p id="out">waiting for first step</p>
<p id="progress"></p>
<script>
const slider = document.getElementById("slider");
slider.addEventListener("input", () => {
  document.getElementById("value").textContent = slider.value;
  fetch("/api/params/{{.Ref}}", {method: "POST", headers: {"Content-Type": "application/json"},
    body: JSON.stringify({value: parseFloat(slider.value)})});
});
setInterval(async () => {
  const s = await (await fetch("/api/status")).json();
  if (s.last) {
    document.getElementById("out").textContent =
      "Time: " + s.last.Time.toFixed(2) + ", Output: " + s.last.Output.toFixed(4);
  }
  document.getElementById("progress").textContent = s.steps + " / " + s.total + " steps";
}, 200);
</script>
</body>
</html>
`))
