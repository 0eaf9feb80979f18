package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"file-converter/internal/config"
	"file-converter/internal/models"
	"file-converter/internal/storage"
)

type fakeDispatcher struct {
	outputs     []string
	err         error
	calls       []string
	unsupported []string
}

func (f *fakeDispatcher) Supports(ext, targetFormat string) bool {
	return !contains(f.unsupported, ext+"|"+targetFormat)
}

func (f *fakeDispatcher) Convert(_ context.Context, inputPath, targetFormat, outputDir string) ([]string, error) {
	f.calls = append(f.calls, inputPath+"|"+targetFormat+"|"+outputDir)
	if f.err != nil {
		return nil, f.err
	}
	var paths []string
	for _, name := range f.outputs {
		p := filepath.Join(outputDir, name)
		if err := os.WriteFile(p, []byte("out"), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

type jobFixture struct {
	service    *JobService
	store      *storage.MemoryStore
	dispatcher *fakeDispatcher
	outputDir  string
	uploadDir  string
	clock      time.Time
	ids        []string
}

func newJobFixture(t *testing.T, ttl time.Duration) *jobFixture {
	t.Helper()
	f := &jobFixture{
		store:      storage.NewMemoryStore(),
		dispatcher: &fakeDispatcher{outputs: []string{"report.pdf"}},
		outputDir:  t.TempDir(),
		uploadDir:  t.TempDir(),
		clock:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ids:        []string{"job-a", "job-b", "job-c"},
	}
	f.service = NewJobService(f.dispatcher, f.store,
		config.StorageConfig{OutputDir: f.outputDir, PublicPrefix: "/outputs"},
		config.RetentionConfig{TTL: ttl, SweepInterval: time.Minute},
	)
	f.service.now = func() time.Time { return f.clock }
	f.service.newID = func() string {
		id := f.ids[0]
		f.ids = f.ids[1:]
		return id
	}
	return f
}

func (f *jobFixture) upload(t *testing.T, name string) *models.UploadedFile {
	t.Helper()
	path := writeFile(t, f.uploadDir, name, "input")
	return &models.UploadedFile{Path: path, OriginalName: name}
}

func TestHandleConvertRequiresFile(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	_, err := f.service.HandleConvert(context.Background(), nil, "pdf")
	if !errors.Is(err, ErrNoFileProvided) {
		t.Fatalf("got %v, want ErrNoFileProvided", err)
	}
	if len(f.dispatcher.calls) != 0 {
		t.Error("dispatcher should not be called without a file")
	}
}

func TestHandleConvertBuildsPublicURLs(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	f.dispatcher.outputs = []string{"book_1.csv", "book 2.csv"}
	upload := f.upload(t, "book.xlsx")

	resp, err := f.service.HandleConvert(context.Background(), upload, "csv")
	if err != nil {
		t.Fatalf("HandleConvert: %v", err)
	}

	if resp.JobID != "job-a" {
		t.Errorf("JobID = %s", resp.JobID)
	}
	want := []models.OutputFile{
		{Name: "book_1.csv", URL: "/outputs/job-a/book_1.csv"},
		{Name: "book 2.csv", URL: "/outputs/job-a/book%202.csv"},
	}
	if len(resp.Files) != len(want) {
		t.Fatalf("files = %+v", resp.Files)
	}
	for i := range want {
		if resp.Files[i] != want[i] {
			t.Errorf("file %d = %+v, want %+v", i, resp.Files[i], want[i])
		}
	}

	jobDir := filepath.Join(f.outputDir, "job-a")
	if want := upload.Path + "|csv|" + jobDir; f.dispatcher.calls[0] != want {
		t.Errorf("dispatcher called with %s, want %s", f.dispatcher.calls[0], want)
	}

	rec, err := f.store.Get(context.Background(), "job-a")
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if rec.OutputDir != jobDir || rec.UploadPath != upload.Path || len(rec.Files) != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestHandleConvertJobsAreDisjoint(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	upload := f.upload(t, "same.docx")

	first, err := f.service.HandleConvert(context.Background(), upload, "pdf")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.service.HandleConvert(context.Background(), upload, "pdf")
	if err != nil {
		t.Fatal(err)
	}
	if first.JobID == second.JobID || first.Files[0].URL == second.Files[0].URL {
		t.Errorf("jobs collided: %+v / %+v", first, second)
	}
	for _, id := range []string{first.JobID, second.JobID} {
		if _, err := os.Stat(filepath.Join(f.outputDir, id, "report.pdf")); err != nil {
			t.Errorf("job %s output missing: %v", id, err)
		}
	}
}

func TestHandleConvertPropagatesDispatcherErrors(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	f.dispatcher.err = &UnsupportedConversionError{From: "png", To: "xlsx"}

	_, err := f.service.HandleConvert(context.Background(), f.upload(t, "a.png"), "xlsx")
	if !errors.Is(err, ErrUnsupportedConversion) {
		t.Fatalf("got %v, want unsupported conversion", err)
	}
	// failed jobs are still tracked so the sweeper can remove partial output
	if _, err := f.store.Get(context.Background(), "job-a"); err != nil {
		t.Errorf("failed job not recorded: %v", err)
	}
}

func TestHandleConvertDirectoryFailure(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	blocker := writeFile(t, t.TempDir(), "not-a-dir", "x")
	f.service.outputDir = blocker

	upload := f.upload(t, "a.csv")
	_, err := f.service.HandleConvert(context.Background(), upload, "xlsx")
	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("got %v, want FilesystemError", err)
	}
	if _, err := os.Stat(upload.Path); !os.IsNotExist(err) {
		t.Error("upload left behind with no job record to evict it")
	}
	if len(f.dispatcher.calls) != 0 {
		t.Error("dispatcher called without a job directory")
	}
}

func TestCheckSupported(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	f.dispatcher.unsupported = []string{"png|xlsx"}

	if err := f.service.CheckSupported("report.CSV", "xlsx"); err != nil {
		t.Errorf("csv to xlsx rejected: %v", err)
	}
	err := f.service.CheckSupported("photo.PNG", " XLSX ")
	var unsupported *UnsupportedConversionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("got %v, want UnsupportedConversionError", err)
	}
	if unsupported.From != "png" || unsupported.To != "xlsx" {
		t.Errorf("unexpected error fields: %+v", unsupported)
	}
}

func TestJobLookupAndCleanup(t *testing.T) {
	f := newJobFixture(t, 2*time.Hour)
	upload := f.upload(t, "scan.pdf")
	if _, err := f.service.HandleConvert(context.Background(), upload, "png"); err != nil {
		t.Fatal(err)
	}

	job, err := f.service.Job(context.Background(), "job-a")
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.ExpiresAt == nil || !job.ExpiresAt.Equal(f.clock.Add(2*time.Hour)) {
		t.Errorf("ExpiresAt = %v", job.ExpiresAt)
	}
	if len(job.Files) != 1 || job.Files[0].URL != "/outputs/job-a/report.pdf" {
		t.Errorf("files = %+v", job.Files)
	}

	deleted, err := f.service.Cleanup(context.Background(), "job-a")
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, "job-a")); !os.IsNotExist(err) {
		t.Error("job directory still exists")
	}
	if _, err := os.Stat(upload.Path); !os.IsNotExist(err) {
		t.Error("upload still exists")
	}
	if _, err := f.service.Job(context.Background(), "job-a"); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("Job after cleanup: %v", err)
	}
	if _, err := f.service.Cleanup(context.Background(), "job-a"); !errors.Is(err, storage.ErrJobNotFound) {
		t.Errorf("second Cleanup: %v", err)
	}
}

func TestSweepEvictsOnlyExpiredJobs(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	oldUpload := f.upload(t, "old.csv")
	if _, err := f.service.HandleConvert(context.Background(), oldUpload, "xlsx"); err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(90 * time.Minute)
	newUpload := f.upload(t, "new.csv")
	if _, err := f.service.HandleConvert(context.Background(), newUpload, "xlsx"); err != nil {
		t.Fatal(err)
	}

	f.clock = f.clock.Add(time.Minute)
	evicted, err := f.service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, "job-a")); !os.IsNotExist(err) {
		t.Error("expired job directory survived")
	}
	if _, err := os.Stat(oldUpload.Path); !os.IsNotExist(err) {
		t.Error("expired upload survived")
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, "job-b", "report.pdf")); err != nil {
		t.Errorf("fresh job was evicted: %v", err)
	}
	if _, err := os.Stat(newUpload.Path); err != nil {
		t.Errorf("fresh upload was removed: %v", err)
	}
}

func TestSweepDisabledWithZeroTTL(t *testing.T) {
	f := newJobFixture(t, 0)
	if _, err := f.service.HandleConvert(context.Background(), f.upload(t, "a.csv"), "xlsx"); err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(365 * 24 * time.Hour)
	if evicted, err := f.service.Sweep(context.Background()); err != nil || evicted != 0 {
		t.Errorf("Sweep = %d, %v; want 0, nil", evicted, err)
	}
}

func TestRunRetentionStopsWithContext(t *testing.T) {
	f := newJobFixture(t, time.Hour)
	f.service.retention.SweepInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.service.RunRetention(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunRetention did not return after cancel")
	}
}
