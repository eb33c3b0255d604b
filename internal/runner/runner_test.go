package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opensandbox/sqlsteal/internal/fetch"
	"github.com/opensandbox/sqlsteal/internal/journal"
	"github.com/opensandbox/sqlsteal/internal/storage"
)

type stubFetcher struct {
	res *fetch.Result
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context, path string) (*fetch.Result, error) {
	return f.res, f.err
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) Store(ctx context.Context, content []byte, remotePath string) (string, error) {
	s.calls++
	return "stub://" + remotePath, s.err
}

type memJournal struct {
	entries []journal.Entry
}

func (j *memJournal) Record(ctx context.Context, e journal.Entry) error {
	j.entries = append(j.entries, e)
	return nil
}

func newRunner(f Fetcher, sink storage.Sink) (*Runner, *bytes.Buffer, *bytes.Buffer, *memJournal) {
	var stdout, stderr bytes.Buffer
	j := &memJournal{}
	r := &Runner{
		Fetcher: f,
		Sink:    sink,
		Journal: j,
		Stdout:  &stdout,
		Stderr:  &stderr,
		Log:     zerolog.Nop(),
		Driver:  "mysql",
		Host:    "db",
	}
	return r, &stdout, &stderr, j
}

func TestRun_PrintsText(t *testing.T) {
	r, stdout, stderr, j := newRunner(&stubFetcher{res: &fetch.Result{Content: []byte("hello\n")}}, nil)

	if err := r.Run(context.Background(), "/etc/hostname"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stdout.String() != "hello\n" {
		t.Errorf("expected stdout %q, got %q", "hello\n", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("expected empty stderr, got %q", stderr.String())
	}
	if len(j.entries) != 1 || j.entries[0].Outcome != "text" || j.entries[0].Size != 6 {
		t.Errorf("unexpected journal entries: %+v", j.entries)
	}
}

func TestRun_DirectoryNeverStored(t *testing.T) {
	sink := &stubSink{}
	r, stdout, stderr, j := newRunner(&stubFetcher{res: &fetch.Result{IsDir: true}}, sink)

	if err := r.Run(context.Background(), "/etc"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("directory result reached the sink %d times", sink.calls)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected empty stdout, got %q", stdout.String())
	}
	if stderr.String() != "\"/etc\" is a dir\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
	if j.entries[0].Outcome != "dir" {
		t.Errorf("expected dir outcome, got %s", j.entries[0].Outcome)
	}
}

func TestRun_DirectoryNotStoredOnDisk(t *testing.T) {
	root := t.TempDir()
	r, _, _, _ := newRunner(&stubFetcher{res: &fetch.Result{IsDir: true}}, &storage.LocalSink{Root: root})

	if err := r.Run(context.Background(), "/etc"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected nothing written, found %d entries", len(entries))
	}
}

func TestRun_FetchErrorAborts(t *testing.T) {
	sink := &stubSink{}
	nf := &fetch.NotFoundError{Path: "/nope"}
	r, stdout, stderr, j := newRunner(&stubFetcher{err: nf}, sink)

	err := r.Run(context.Background(), "/nope")
	if !errors.Is(err, nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if sink.calls != 0 {
		t.Error("sink called after fetch error")
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("expected no output, got stdout %q stderr %q", stdout.String(), stderr.String())
	}
	if j.entries[0].Outcome != OutcomeError || j.entries[0].Error != nf.Error() {
		t.Errorf("unexpected journal entry: %+v", j.entries[0])
	}
}

func TestRun_BinaryPrintedAsDiagnostic(t *testing.T) {
	r, stdout, stderr, _ := newRunner(&stubFetcher{res: &fetch.Result{Content: []byte{0xff, 0xd8, 0xff}}}, nil)

	if err := r.Run(context.Background(), "/var/www/logo.jpg"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("binary content leaked to stdout")
	}
	if stderr.String() != "\"/var/www/logo.jpg\" is a binary file\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestRun_StoresToDisk(t *testing.T) {
	root := t.TempDir()
	content := []byte{0x00, 0xff, 'x'}
	r, stdout, stderr, j := newRunner(&stubFetcher{res: &fetch.Result{Content: content}}, &storage.LocalSink{Root: root})

	if err := r.Run(context.Background(), "/etc/passwd"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "etc", "passwd"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("expected %v on disk, got %v", content, got)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Error("expected no output when storing")
	}
	if e := j.entries[0]; e.Outcome != OutcomeStored || e.SHA256 == "" || e.Location == "" {
		t.Errorf("unexpected journal entry: %+v", e)
	}
}

func TestRun_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("disk full")
	r, _, _, j := newRunner(&stubFetcher{res: &fetch.Result{Content: []byte("x")}}, &stubSink{err: storeErr})

	if err := r.Run(context.Background(), "/etc/passwd"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if j.entries[0].Outcome != OutcomeError {
		t.Errorf("expected error outcome, got %s", j.entries[0].Outcome)
	}
}

func TestRun_AssignsRunID(t *testing.T) {
	r, _, _, j := newRunner(&stubFetcher{res: &fetch.Result{Content: []byte("x")}}, nil)

	if err := r.Run(context.Background(), "/x"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.RunID == "" || j.entries[0].RunID != r.RunID {
		t.Errorf("expected run id to be set and journaled, got %q / %q", r.RunID, j.entries[0].RunID)
	}
}
