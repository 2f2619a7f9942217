package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"chunkscan/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report. When destination cannot be created report
// goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{entries: make(map[string]entry), created: time.Now()}

	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	r.file = f
	return r, nil
}

// Names of generated report entries.
const (
	manifestName = "MANIFEST"
	resultName   = "result.txt"
	failuresName = "failed.txt"
	failedDir    = "failed"
)

// entry is a single file in the report, either data kept in memory or file
// on disk (original or our temporary copy of it).
type entry struct {
	original string
	actual   string
	stamp    time.Time
	data     []byte
	// directory holding copy made by StoreCopy, removed on Close
	temp string
}

// failure describes container which could not be scanned.
type failure struct {
	container string
	cause     string
	// report entry with container copy, empty when there is none
	copy string
}

// Report accumulates everything needed to troubleshoot a scan: configuration,
// logs, scan result and containers which could not be scanned. Nothing is
// written until Close. All methods are safe to call on nil Report, which
// means no report was requested.
// NOTE: not to be used concurrently, scan collector is the only writer.
type Report struct {
	entries  map[string]entry
	failures []failure
	created  time.Time
	file     *os.File
}

// Close writes report archive and removes temporary copies.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.finalize()
	err = multierr.Append(err, r.file.Close())
	for _, e := range r.entries {
		if len(e.temp) > 0 {
			err = multierr.Append(err, os.RemoveAll(e.temp))
		}
	}
	return err
}

// Name returns name of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file which is put in the report as it is at Close time
// (logs are still being written).
func (r *Report) Store(name, fname string) {
	if r == nil {
		return
	}
	if old, exists := r.entries[name]; exists && old.original != fname {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.original, fname))
	}

	e := entry{original: fname, actual: fname}
	if p, err := filepath.Abs(fname); err == nil {
		e.actual = p
	}
	r.entries[name] = e
}

// StoreData puts data in the report under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("Attempt to overwrite data in the report for [%s]", name))
	}
	if data == nil {
		// nil data means file on disk
		data = []byte{}
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// StoreCopy copies regular file to temporary location, so report has it as
// it was at the time of the call. Name collisions are resolved by appending
// timestamp. Returns name the copy was stored under.
func (r *Report) StoreCopy(name, fname string) (string, error) {
	if r == nil {
		return "", nil
	}

	e := entry{stamp: time.Now(), original: fname}
	src, err := filepath.Abs(fname)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("unable to copy %s into report: not a regular file", fname)
	}

	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return "", err
	}
	if e.actual, err = copyFile(dir, src, info.ModTime()); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	e.temp = dir
	r.entries[name] = e
	return name, nil
}

// StoreFailure records container which could not be scanned. When container
// is a file on disk its copy goes into the report under "failed/".
func (r *Report) StoreFailure(container, fname string, cause error) error {
	if r == nil {
		return nil
	}
	f := failure{container: container, cause: fmt.Sprint(cause)}
	var err error
	if len(fname) > 0 {
		f.copy, err = r.StoreCopy(path.Join(failedDir, path.Base(filepath.ToSlash(container))), fname)
	}
	r.failures = append(r.failures, f)
	return err
}

// StoreResult puts text rendering of scan result in the report.
func (r *Report) StoreResult(text []byte) {
	r.StoreData(resultName, text)
}

func copyFile(dir, src string, modTime time.Time) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(out, in)
	err = multierr.Append(err, out.Close())
	if err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, modTime, modTime); err != nil {
		return "", err
	}
	return dst, nil
}

// finalize writes archive: manifest first, failures list, then entries in
// manifest order. Files which disappeared since they were stored are
// skipped.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)

	now := time.Now()
	if len(r.failures) > 0 {
		r.entries[failuresName] = entry{data: r.failureList(), stamp: now}
	}
	names := slices.SortedFunc(maps.Keys(r.entries), compareNatural)

	if err := addFile(arc, manifestName, now, r.manifest(names, now)); err != nil {
		return err
	}
	for _, name := range names {
		e := r.entries[name]
		if e.data != nil {
			if err := addFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		if err := addDiskFile(arc, name, e.actual); err != nil {
			return err
		}
	}
	return arc.Close()
}

func (r *Report) manifest(names []string, now time.Time) io.Reader {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%s %s (%s) %s/%s\n", misc.GetAppName(), misc.GetVersion(), misc.GetGitHash(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(buf, "started %s, finished %s\n", r.created.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	fmt.Fprintf(buf, "failed containers: %d\n\n", len(r.failures))
	for _, name := range names {
		e := r.entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(buf, "%s\t%s\t%s : %s\n", stamp.UTC().Format(time.UnixDate), name, e.original, e.actual)
	}
	return buf
}

// failureList has one line per failed container: name, report entry of its
// copy ("-" when none) and error.
func (r *Report) failureList() []byte {
	failures := slices.Clone(r.failures)
	slices.SortStableFunc(failures, func(a, b failure) int {
		return compareNatural(a.container, b.container)
	})
	buf := new(bytes.Buffer)
	for _, f := range failures {
		c := f.copy
		if len(c) == 0 {
			c = "-"
		}
		fmt.Fprintf(buf, "%s\t%s\t%s\n", f.container, c, f.cause)
	}
	return buf.Bytes()
}

func compareNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

func addDiskFile(dst *zip.Writer, name, fname string) error {
	info, err := os.Stat(fname)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	return addFile(dst, name, info.ModTime(), f)
}

func addFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
