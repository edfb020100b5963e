package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"earmark/internal/library"
	"earmark/internal/testsupport"
)

func TestAddClipSlicesPersistsAndQueues(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "clip source bytes", "source.mp3")

	clip, err := e.mgr.AddClip(context.Background(), book.ID, 5_000)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if clip.SourceID != book.ID || clip.StartMS != 5_000 {
		t.Errorf("unexpected clip: %+v", clip)
	}
	if clip.DurationMS != e.cfg.DefaultClipDurationMS {
		t.Errorf("duration = %d, want default %d", clip.DurationMS, e.cfg.DefaultClipDurationMS)
	}
	if _, statErr := os.Stat(clip.URI); statErr != nil {
		t.Errorf("clip file missing: %v", statErr)
	}

	if len(e.slicer.slices) != 1 {
		t.Fatalf("slices = %d, want 1", len(e.slicer.slices))
	}
	req := e.slicer.slices[0]
	if req.SourceURI != book.URI || req.StartMS != 5_000 || req.EndMS != 5_000+e.cfg.DefaultClipDurationMS {
		t.Errorf("slice request = %+v", req)
	}

	if ops := e.syncs.ops("clip"); len(ops) != 1 || ops[0] != "upsert" {
		t.Errorf("sync ops = %v", ops)
	}
	if len(e.trans.queued) != 1 || e.trans.queued[0] != clip.ID {
		t.Errorf("transcription queue = %v", e.trans.queued)
	}
	if clips := e.mgr.Clips(); len(clips) != 1 {
		t.Errorf("projection clips = %d, want 1", len(clips))
	}
}

func TestAddClipCapsDurationToRemainingLength(t *testing.T) {
	e := newEnv(t, testsupport.WithDefaultClipDuration(20_000))
	e.meta.meta.DurationMS = 15_000
	book := e.importFile(t, "short source", "short.mp3")

	clip, err := e.mgr.AddClip(context.Background(), book.ID, 10_000)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if clip.DurationMS != 5_000 {
		t.Errorf("duration = %d, want capped 5000", clip.DurationMS)
	}
	if req := e.slicer.slices[0]; req.EndMS != 15_000 {
		t.Errorf("slice end = %d, want 15000", req.EndMS)
	}
}

func TestAddClipArchivedBookFails(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "archive me", "arch.mp3")
	if err := e.mgr.ArchiveBook(context.Background(), book.ID); err != nil {
		t.Fatalf("ArchiveBook: %v", err)
	}
	syncBefore := len(e.syncs.entries)

	_, err := e.mgr.AddClip(context.Background(), book.ID, 1_000)
	if !errors.Is(err, library.ErrArchived) {
		t.Fatalf("expected ErrArchived, got %v", err)
	}
	if len(e.slicer.slices) != 0 {
		t.Error("archived book must not be sliced")
	}
	if len(e.syncs.entries) != syncBefore {
		t.Error("failed add must not queue sync changes")
	}
	if len(e.trans.queued) != 0 {
		t.Error("failed add must not queue transcription")
	}
	clips, _ := e.store.Clips(context.Background())
	if len(clips) != 0 {
		t.Errorf("failed add persisted a clip: %+v", clips)
	}
}

func TestAddClipUnknownBookFails(t *testing.T) {
	e := newEnv(t)
	_, err := e.mgr.AddClip(context.Background(), "nope", 0)
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddClipPersistFailureCleansSlicedFile(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "persist fail source", "pf.mp3")
	e.records.createErr = errors.New("disk full")
	syncBefore := len(e.syncs.entries)

	_, err := e.mgr.AddClip(context.Background(), book.ID, 0)
	if !errors.Is(err, library.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(e.slicer.cleanups) != 1 {
		t.Errorf("cleanups = %v, want the sliced file removed", e.slicer.cleanups)
	}
	if len(e.syncs.entries) != syncBefore {
		t.Error("sync enqueue must be skipped when persistence fails")
	}
	if len(e.trans.queued) != 0 {
		t.Error("transcription enqueue must be skipped when persistence fails")
	}
}

func TestUpdateClipUnknownIsNoop(t *testing.T) {
	e := newEnv(t)
	note := "anything"
	clip, err := e.mgr.UpdateClip(context.Background(), "missing", library.ClipChange{Note: &note})
	if err != nil {
		t.Fatalf("UpdateClip: %v", err)
	}
	if clip != nil {
		t.Errorf("unknown clip returned %+v", clip)
	}
}

func TestUpdateClipNoteOnlyDoesNotReslice(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "note source", "note.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 2_000)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	slicesBefore := len(e.slicer.slices)
	transBefore := len(e.trans.queued)

	note := "a line worth keeping"
	sameStart := created.StartMS
	updated, err := e.mgr.UpdateClip(context.Background(), created.ID, library.ClipChange{
		Note: &note,
		// Resubmitting the current start is not a bounds change.
		StartMS: &sameStart,
	})
	if err != nil {
		t.Fatalf("UpdateClip: %v", err)
	}
	if updated.Note != note {
		t.Errorf("note = %q", updated.Note)
	}
	if len(e.slicer.slices) != slicesBefore {
		t.Error("note edit must not re-slice")
	}
	if len(e.slicer.cleanups) != 0 {
		t.Error("note edit must not clean up files")
	}
	if len(e.trans.queued) != transBefore {
		t.Error("note edit must not re-queue transcription")
	}
}

func TestUpdateClipBoundsChangeReslicesWithMergedBounds(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "bounds source", "bounds.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 2_000)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if err := e.store.SetClipTranscription(context.Background(), created.ID, "stale words"); err != nil {
		t.Fatalf("SetClipTranscription: %v", err)
	}
	transBefore := len(e.trans.queued)

	newStart := int64(8_000)
	updated, err := e.mgr.UpdateClip(context.Background(), created.ID, library.ClipChange{StartMS: &newStart})
	if err != nil {
		t.Fatalf("UpdateClip: %v", err)
	}

	// The unspecified duration merges in from the current clip.
	req := e.slicer.slices[len(e.slicer.slices)-1]
	if req.StartMS != 8_000 || req.EndMS != 8_000+created.DurationMS {
		t.Errorf("re-slice request = %+v", req)
	}
	if updated.StartMS != 8_000 || updated.DurationMS != created.DurationMS {
		t.Errorf("updated clip = %+v", updated)
	}
	if updated.Transcription != "" {
		t.Error("bounds change must clear the stale transcription")
	}
	if len(e.trans.queued) != transBefore+1 {
		t.Errorf("transcription queue = %v, want re-queue after bounds change", e.trans.queued)
	}
}

func TestUpdateClipBoundsChangeOnArchivedSourceFails(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "vanishing source", "vanish.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 1_000)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	if err := e.mgr.ArchiveBook(context.Background(), book.ID); err != nil {
		t.Fatalf("ArchiveBook: %v", err)
	}

	newStart := int64(4_000)
	_, err = e.mgr.UpdateClip(context.Background(), created.ID, library.ClipChange{StartMS: &newStart})
	if !errors.Is(err, library.ErrSourceRemoved) {
		t.Fatalf("expected ErrSourceRemoved, got %v", err)
	}

	// Note edits stay possible on a clip with an archived parent.
	note := "still editable"
	if _, err := e.mgr.UpdateClip(context.Background(), created.ID, library.ClipChange{Note: &note}); err != nil {
		t.Fatalf("note edit after archive: %v", err)
	}
}

func TestDeleteClipRemovesFileRowAndQueuesSync(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "delete source", "del.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 0)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}

	if err := e.mgr.DeleteClip(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteClip: %v", err)
	}

	if _, statErr := os.Stat(created.URI); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("clip file still present: %v", statErr)
	}
	row, err := e.store.ClipByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ClipByID: %v", err)
	}
	if row != nil {
		t.Error("clip row still present")
	}
	if ops := e.syncs.ops("clip"); ops[len(ops)-1] != "delete" {
		t.Errorf("sync ops = %v, want trailing delete", ops)
	}
	if len(e.trans.removed) != 1 || e.trans.removed[0] != created.ID {
		t.Errorf("transcription dequeue = %v", e.trans.removed)
	}
	if clips := e.mgr.Clips(); len(clips) != 0 {
		t.Errorf("projection clips = %+v", clips)
	}
}

func TestDeleteClipCleanupFailureLeavesRowIntact(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "sticky source", "sticky.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 0)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	syncBefore := len(e.syncs.entries)
	e.slicer.cleanupErr = errors.New("file locked")

	err = e.mgr.DeleteClip(context.Background(), created.ID)
	if !errors.Is(err, library.ErrMedia) {
		t.Fatalf("expected ErrMedia, got %v", err)
	}

	row, lookupErr := e.store.ClipByID(context.Background(), created.ID)
	if lookupErr != nil {
		t.Fatalf("ClipByID: %v", lookupErr)
	}
	if row == nil {
		t.Error("row deleted despite cleanup failure")
	}
	if len(e.syncs.entries) != syncBefore {
		t.Error("failed delete must not queue sync changes")
	}
}

func TestDeleteClipAlreadyGoneStillDeletesRow(t *testing.T) {
	e := newEnv(t)
	book := e.importFile(t, "external delete", "ext.mp3")
	created, err := e.mgr.AddClip(context.Background(), book.ID, 0)
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}

	// Simulate an externally removed audio file; cleanup is idempotent.
	if err := os.Remove(created.URI); err != nil {
		t.Fatalf("remove clip file: %v", err)
	}
	if err := e.mgr.DeleteClip(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteClip: %v", err)
	}
	row, _ := e.store.ClipByID(context.Background(), created.ID)
	if row != nil {
		t.Error("row survived delete")
	}
}
