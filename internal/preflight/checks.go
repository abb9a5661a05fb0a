package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tagbench/internal/config"
	"tagbench/internal/labels"
	"tagbench/internal/predict"
	"tagbench/internal/services"
)

const (
	pingTimeout    = 30 * time.Second
	datasetTimeout = 10 * time.Second
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDataset verifies a dataset location is readable. Remote locations get
// a HEAD request; local files must exist and be readable.
func CheckDataset(ctx context.Context, name, location string, client *http.Client) Result {
	location = strings.TrimSpace(location)
	if location == "" {
		return Result{Name: name, Detail: "location not configured"}
	}
	if !config.IsRemote(location) {
		info, err := os.Stat(location)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", location, err)}
		}
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", location)}
		}
		if err := unix.Access(location, unix.R_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", location, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", location)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, datasetTimeout)
	defer cancel()
	if client == nil {
		client = &http.Client{Timeout: datasetTimeout}
	}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, location, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", location, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", location)}
}

// CheckLabelManifest verifies the label manifest parses into a valid set.
func CheckLabelManifest(path string) Result {
	const name = "Label manifest"
	set, manifest, err := labels.LoadManifest(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%d labels", set.Len())
	if manifest.Default != "" {
		detail += fmt.Sprintf(", default %q", manifest.Default)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCredentials verifies the backend has an API key after env fallbacks.
func CheckCredentials(b config.Backend) Result {
	name := fmt.Sprintf("Backend %s credentials", b.Name)
	if strings.TrimSpace(b.APIKey) == "" {
		hint := "api key missing"
		if b.APIKeyEnv != "" {
			hint = fmt.Sprintf("api key missing (set %s or api_key)", b.APIKeyEnv)
		}
		return Result{Name: name, Detail: hint}
	}
	return Result{Name: name, Passed: true, Detail: "api key present"}
}

// CheckBackend sends one short request to the first model served by b.
// It uses a 30-second timeout and a single attempt.
func CheckBackend(ctx context.Context, cfg *config.Config, b config.Backend) Result {
	name := fmt.Sprintf("Backend %s", b.Name)
	var model string
	for _, m := range cfg.Models {
		if m.Backend == b.Name {
			model = m.ID
			break
		}
	}
	if model == "" {
		return Result{Name: name, Detail: "no model routed to backend"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	backend, err := predict.BuildBackend(checkCtx, b)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checker, ok := backend.(predict.HealthChecker)
	if !ok {
		return Result{Name: name, Passed: true, Detail: "health check unsupported"}
	}
	if err := checker.HealthCheck(checkCtx, model); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", model)}
}

// summarizeBackendError produces a human-readable summary for health check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "rejected: " + err.Error()
	}
	return err.Error()
}
