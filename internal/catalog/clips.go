package catalog

import (
	"context"
	"fmt"

	"earmark/internal/library"
	"earmark/internal/logging"
	"earmark/internal/media/slicer"
)

// AddClip slices a segment out of a book starting at the given position and
// persists it as a clip. The clip length is the configured default, capped
// so the slice never runs past the end of the source. Ordering is strict:
// slice, persist, queue sync, queue transcription; a failed step stops the
// chain so no row ever references audio that was not produced.
func (m *Manager) AddClip(ctx context.Context, bookID string, positionMS int64) (*library.ClipWithFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.records.BookByID(ctx, bookID)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "add clip", "load book", err)
	}
	if book == nil {
		return nil, library.Wrap(library.ErrNotFound, "catalog", "add clip", bookID, nil)
	}
	if book.Archived() {
		return nil, library.Wrap(library.ErrArchived, "catalog", "add clip", book.DisplayTitle(), nil)
	}
	if positionMS < 0 || positionMS >= book.DurationMS {
		return nil, fmt.Errorf("add clip: position %dms outside book duration %dms", positionMS, book.DurationMS)
	}

	durationMS := m.defaultClipDurationMS
	if remaining := book.DurationMS - positionMS; remaining < durationMS {
		durationMS = remaining
	}

	clipID := m.newID()
	outputURI := m.files.ClipPath(clipID, book.URI)
	if _, err := m.slicer.Slice(ctx, slicer.Request{
		SourceURI: book.URI,
		StartMS:   positionMS,
		EndMS:     positionMS + durationMS,
		OutputURI: outputURI,
	}); err != nil {
		return nil, library.Wrap(library.ErrMedia, "catalog", "add clip", "slice", err)
	}

	clip := &library.Clip{
		ID:         clipID,
		SourceID:   book.ID,
		URI:        outputURI,
		StartMS:    positionMS,
		DurationMS: durationMS,
	}
	if err := m.records.CreateClip(ctx, clip); err != nil {
		if cleanupErr := m.slicer.Cleanup(outputURI); cleanupErr != nil {
			m.logger.Warn("sliced file cleanup failed",
				logging.String(logging.FieldURI, outputURI),
				logging.Error(cleanupErr))
		}
		return nil, library.Wrap(library.ErrPersistence, "catalog", "add clip", "persist clip", err)
	}
	if err := m.enqueueSync(ctx, EntityClip, clipID, OpUpsert, clip); err != nil {
		return nil, err
	}

	if refreshErr := m.refreshLocked(ctx); refreshErr != nil {
		m.logger.Warn("projection refresh after clip creation failed", logging.Error(refreshErr))
	}
	m.queueTranscription(ctx, clipID, outputURI)

	m.logger.Info("clip created",
		logging.String(logging.FieldClipID, clipID),
		logging.String(logging.FieldBookID, book.ID),
		logging.Int64("start_ms", positionMS),
		logging.Int64("duration_ms", durationMS))

	return m.clipWithFile(ctx, clipID)
}

// UpdateClip applies a partial edit to a clip. Unknown clips are a no-op.
// A genuine change to start or duration re-slices the audio with the merged
// bounds and invalidates any stored transcription; resubmitting the current
// values does not count as a change.
func (m *Manager) UpdateClip(ctx context.Context, id string, change library.ClipChange) (*library.ClipWithFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.records.ClipByID(ctx, id)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "update clip", "load clip", err)
	}
	if current == nil {
		return nil, nil
	}
	if change.Empty() {
		return current, nil
	}

	boundsChanged := (change.StartMS != nil && *change.StartMS != current.StartMS) ||
		(change.DurationMS != nil && *change.DurationMS != current.DurationMS)

	merged := current.Clip
	if change.Note != nil {
		merged.Note = *change.Note
	}
	if change.StartMS != nil {
		merged.StartMS = *change.StartMS
	}
	if change.DurationMS != nil {
		merged.DurationMS = *change.DurationMS
	}

	if boundsChanged {
		if current.SourceURI == "" {
			return nil, library.Wrap(library.ErrSourceRemoved, "catalog", "update clip", current.SourceName, nil)
		}
		if merged.StartMS < 0 || merged.DurationMS <= 0 {
			return nil, fmt.Errorf("update clip: invalid bounds [%d, %d)", merged.StartMS, merged.EndMS())
		}

		oldURI := current.URI
		newURI := m.files.ClipPath(merged.ID, current.SourceURI)
		if _, err := m.slicer.Slice(ctx, slicer.Request{
			SourceURI: current.SourceURI,
			StartMS:   merged.StartMS,
			EndMS:     merged.EndMS(),
			OutputURI: newURI,
		}); err != nil {
			return nil, library.Wrap(library.ErrMedia, "catalog", "update clip", "re-slice", err)
		}
		merged.URI = newURI
		merged.Transcription = ""

		if oldURI != "" && oldURI != newURI {
			if cleanupErr := m.slicer.Cleanup(oldURI); cleanupErr != nil {
				m.logger.Warn("stale clip file cleanup failed",
					logging.String(logging.FieldURI, oldURI),
					logging.Error(cleanupErr))
			}
		}
	}

	if err := m.records.UpdateClip(ctx, &merged); err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "update clip", "persist clip", err)
	}
	if err := m.enqueueSync(ctx, EntityClip, merged.ID, OpUpsert, &merged); err != nil {
		return nil, err
	}

	if refreshErr := m.refreshLocked(ctx); refreshErr != nil {
		m.logger.Warn("projection refresh after clip update failed", logging.Error(refreshErr))
	}
	if boundsChanged {
		m.queueTranscription(ctx, merged.ID, merged.URI)
	}

	return m.clipWithFile(ctx, merged.ID)
}

// DeleteClip removes a clip's audio file and then its record. Cleanup runs
// first: when the file cannot be removed the row stays intact and the error
// propagates, so the store never references audio left behind. Once cleanup
// succeeds the record delete and sync intent proceed even when the clip was
// already gone from the projection, which covers remotely triggered deletes.
func (m *Manager) DeleteClip(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.records.ClipByID(ctx, id)
	if err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "delete clip", "load clip", err)
	}
	if current != nil && current.URI != "" {
		if err := m.slicer.Cleanup(current.URI); err != nil {
			return library.Wrap(library.ErrMedia, "catalog", "delete clip", "remove audio", err)
		}
	}

	if _, err := m.records.DeleteClip(ctx, id); err != nil {
		return library.Wrap(library.ErrPersistence, "catalog", "delete clip", "delete row", err)
	}
	if err := m.enqueueSync(ctx, EntityClip, id, OpDelete, nil); err != nil {
		return err
	}

	if m.transcriptions != nil {
		if err := m.transcriptions.Remove(ctx, id); err != nil {
			m.logger.Warn("transcription dequeue failed",
				logging.String(logging.FieldClipID, id),
				logging.Error(err))
		}
	}

	if idx := m.clipIndexLocked(id); idx >= 0 {
		m.clips = append(m.clips[:idx], m.clips[idx+1:]...)
	}

	m.logger.Info("clip deleted", logging.String(logging.FieldClipID, id))
	return nil
}

// queueTranscription registers clip audio for transcription. The queue is a
// detached consumer; a failure to enqueue costs a transcript, not the clip.
func (m *Manager) queueTranscription(ctx context.Context, clipID, uri string) {
	if m.transcriptions == nil {
		return
	}
	if err := m.transcriptions.Enqueue(ctx, clipID, uri); err != nil {
		m.logger.Warn("transcription enqueue failed",
			logging.String(logging.FieldClipID, clipID),
			logging.String(logging.FieldImpact, "clip will have no transcript"),
			logging.Error(err))
	}
}

func (m *Manager) clipWithFile(ctx context.Context, id string) (*library.ClipWithFile, error) {
	clip, err := m.records.ClipByID(ctx, id)
	if err != nil {
		return nil, library.Wrap(library.ErrPersistence, "catalog", "load clip", id, err)
	}
	return clip, nil
}
