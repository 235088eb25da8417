package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/woozymasta/floorguide/internal/config"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MapFile is the name of the prepared image inside a floor directory.
const MapFile = "map.webp"

// Quality is the lossy WebP quality used for prepared floor images.
const Quality = 85

// Job describes one floor image to prepare.
type Job struct {
	Floor    string
	Source   string
	OutDir   string
	MaxWidth int
	Force    bool
}

// Result reports the outcome of a Job.
type Result struct {
	Floor   string
	Path    string
	Width   int
	Height  int
	Skipped bool
	Err     error
}

// Jobs builds preparation jobs for the given floors in display order.
// An empty ids slice selects every configured floor; unknown ids are logged and ignored.
func Jobs(cfg *config.Config, ids []string, outDir string, force bool) []Job {
	if len(ids) == 0 {
		ids = cfg.FloorIDs()
	}

	jobs := make([]Job, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		f, ok := cfg.Floors[id]
		if !ok {
			log.Error().
				Str("floor", id).
				Msg("Floor specified in --limit not found in configuration")
			continue
		}

		jobs = append(jobs, Job{
			Floor:    id,
			Source:   f.Map,
			OutDir:   filepath.Join(outDir, id),
			MaxWidth: cfg.ImageMaxWidth,
			Force:    force,
		})
	}

	return jobs
}

// ProcessFloors prepares every job with at most concurrency workers.
// Results are returned in job order.
func ProcessFloors(client *http.Client, jobs []Job, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	type indexed struct {
		job Job
		idx int
	}

	queue := make(chan indexed, len(jobs))
	results := make([]Result, len(jobs))

	for i, j := range jobs {
		queue <- indexed{job: j, idx: i}
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range queue {
				res := ProcessFloor(client, q.job)
				if res.Err != nil {
					log.Error().
						Err(res.Err).
						Str("floor", q.job.Floor).
						Str("source", q.job.Source).
						Msg("Failed to prepare floor image")
				}
				results[q.idx] = res
			}
		}()
	}
	wg.Wait()

	return results
}

// ProcessFloor loads the floor source image, fits it to MaxWidth and writes it as WebP.
// An existing non-empty output is kept unless Force is set.
func ProcessFloor(client *http.Client, j Job) Result {
	outPath := filepath.Join(j.OutDir, MapFile)
	res := Result{Floor: j.Floor, Path: outPath}

	if !j.Force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			log.Debug().Str("floor", j.Floor).Msg("Floor image exists, skipping")
			res.Skipped = true
			return res
		}
	}

	srcImg, err := loadSourceImage(client, j.Source)
	if err != nil {
		res.Err = err
		return res
	}

	dstImg := fitWidth(srcImg, j.MaxWidth)
	res.Width, res.Height = dstImg.Bounds().Dx(), dstImg.Bounds().Dy()

	if err := os.MkdirAll(j.OutDir, 0755); err != nil {
		res.Err = err
		return res
	}

	if err := writeWebP(outPath, dstImg); err != nil {
		res.Err = err
		return res
	}

	log.Info().
		Str("floor", j.Floor).
		Int("width", res.Width).
		Int("height", res.Height).
		Str("path", outPath).
		Msg("Floor image prepared")

	return res
}

// encodeWebP writes img as lossy WebP.
var encodeWebP = func(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: Quality})
}

// writeWebP encodes img into a temporary file next to path and renames it into
// place, so a failed run never leaves a partial image behind.
func writeWebP(path string, img image.Image) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".map-*.webp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = encodeWebP(tmp, img); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode webp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// fitWidth downscales img to maxWidth keeping the aspect ratio.
// Images already narrow enough, or a non-positive maxWidth, leave img as is.
func fitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}

	height := b.Dy() * maxWidth / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	return dst
}

func loadSourceImage(client *http.Client, source string) (image.Image, error) {
	var reader io.Reader

	if config.IsURL(source) {
		// Remote URL
		log.Info().Str("url", source).Msg("Downloading source image...")
		resp, err := client.Get(source)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
		}

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(bodyBytes)
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		reader = f
	}

	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Image decoded successfully")

	return img, nil
}
