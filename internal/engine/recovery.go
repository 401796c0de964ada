package engine

import (
	"errors"
	"log/slog"

	"github.com/caskdb/caskdb/internal/data"
)

// loadIndexFromDataFiles replays every segment in fileIDs order, oldest
// first, applying each record to the index in the order it was written so
// that the last write (or delete) for a key wins. It also restores the
// active file's write offset to just past the last record it could read,
// truncating a torn tail record in place when that is the configured
// recovery policy.
func (e *Engine) loadIndexFromDataFiles() error {
	if len(e.fileIDs) == 0 {
		return nil
	}

	for _, fileID := range e.fileIDs {
		df := e.fileForID(fileID)

		var offset uint64
		for {
			record, size, err := df.ReadRecord(offset)
			if errors.Is(err, data.ErrReadEOF) {
				break
			}
			if errors.Is(err, data.ErrCorruptRecord) {
				if e.options.SyncWrites || fileID != e.activeFile.GetFileID() {
					return err
				}
				slog.Warn("engine: truncating torn record at recovery", "file_id", fileID, "offset", offset)
				break
			}
			if err != nil {
				return err
			}

			pos := &data.LogRecordPos{FileID: fileID, Offset: offset}
			if record.Type == data.RecordDeleted {
				if _, err := e.index.Delete(record.Key); err != nil {
					return wrapIndexUpdateErr(err)
				}
			} else {
				if _, err := e.index.Put(record.Key, pos); err != nil {
					return wrapIndexUpdateErr(err)
				}
			}

			offset += uint64(size)
		}

		if fileID == e.activeFile.GetFileID() {
			e.activeFile.SetWriteOff(offset)
		}
	}

	return nil
}

func (e *Engine) fileForID(fileID uint32) *data.DataFile {
	if e.activeFile.GetFileID() == fileID {
		return e.activeFile
	}
	return e.olderFiles[fileID]
}

func wrapIndexUpdateErr(err error) error {
	return errors.Join(ErrIndexUpdateFailed, err)
}
