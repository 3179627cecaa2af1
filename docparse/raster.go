package docparse

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
)

// popplerRenderer shells out to pdftoppm for region rasterization. The
// reader gives us text and geometry, but faithfully painting arbitrary page
// content is a job for a real rasterizer. When pdftoppm is missing the
// renderer fails per region, so parsing still completes with the visuals
// dropped rather than aborting.
type popplerRenderer struct {
	path     string
	password string
	err      error
}

func newPopplerRenderer(path, password string, log *slog.Logger) *popplerRenderer {
	r := &popplerRenderer{path: path, password: password}
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		r.err = fmt.Errorf("pdftoppm not found in PATH (install poppler-utils): %w", err)
		log.Warn("visual rendering unavailable", "error", r.err)
	}
	return r
}

// RenderRegion rasterizes one page region to PNG at the requested dpi. The
// crop is handed to pdftoppm in output pixels measured from the page's
// top-left corner, which lines up with the top-origin coordinates used
// throughout.
func (r *popplerRenderer) RenderRegion(ctx context.Context, pageNum int, region Rect, dpi int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if region.Empty() {
		return nil, fmt.Errorf("empty region %+v", region)
	}

	scale := float64(dpi) / 72.0
	x := int(math.Floor(region.X0 * scale))
	y := int(math.Floor(region.Top * scale))
	w := int(math.Ceil(region.Width() * scale))
	h := int(math.Ceil(region.Height() * scale))
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	page := strconv.Itoa(pageNum)
	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", page, "-l", page,
		"-x", strconv.Itoa(x), "-y", strconv.Itoa(y),
		"-W", strconv.Itoa(w), "-H", strconv.Itoa(h),
	}
	if r.password != "" {
		args = append(args, "-upw", r.password)
	}
	args = append(args, r.path, "-")

	cmd := exec.CommandContext(ctx, "pdftoppm", args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", pageNum)
	}
	return out.Bytes(), nil
}
