package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sys/unix"
)

const checkTimeout = 5 * time.Second

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

// CheckWritableTarget passes when path is an accessible directory, or when it
// does not exist yet but its nearest existing ancestor would let us create it.
func CheckWritableTarget(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckUpstream verifies the meal-ordering API answers and accepts the
// configured credentials. Any response other than 401/403 counts as reachable.
func CheckUpstream(ctx context.Context, baseURL, login, password string) Result {
	const name = "Upstream API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}
	if login == "" || password == "" {
		return Result{Name: name, Detail: "missing login or password"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	resp, err := resty.New().
		SetTimeout(checkTimeout).
		SetBasicAuth(login, password).
		R().
		SetContext(checkCtx).
		Get(base + "/employees/api/v3/menu_categories")
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: fmt.Sprintf("auth failed (%d)", resp.StatusCode())}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%d)", resp.StatusCode())}
	}
}

// CheckNtfy verifies the ntfy server is reachable.
func CheckNtfy(ctx context.Context, ntfyURL string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(ntfyURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing ntfy_url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	resp, err := resty.New().SetTimeout(checkTimeout).R().SetContext(checkCtx).Get(base + "/v1/health")
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode())}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
