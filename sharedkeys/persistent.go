package sharedkeys

import (
	"context"
	"fmt"
	"sync"

	"github.com/tagvalue/tvf/compress"
	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/internal/options"
)

// Storage is the caller-implemented persistence backend a PersistentSharedKeys
// reads from and writes to. It deals only in opaque bytes; PersistentSharedKeys
// owns the encoding (a TVF string array, optionally compressed).
type Storage interface {
	// Read returns the last-written payload, or ok=false if nothing has been
	// written yet.
	Read(ctx context.Context) (data []byte, ok bool, err error)
	// Write persists data, replacing whatever was there before.
	Write(ctx context.Context, data []byte) error
}

// PersistentSharedKeys adds disk round-tripping to SharedKeys: a transaction
// absorbs keys other processes have committed before allowing new additions,
// and a save persists newly added keys back to Storage.
type PersistentSharedKeys struct {
	*SharedKeys

	storage    Storage
	compressor compress.Codec
	logger     Logger

	refreshMu sync.Mutex

	// committedCount is the Revert rollback target: the table size as of the
	// last successful refresh or transaction end.
	committedCount int
	// savedCount is the table size as of the last successful Save, used to
	// decide whether Save has new work to do.
	savedCount int
}

// PersistentOption configures a PersistentSharedKeys at construction time.
type PersistentOption = options.Option[*PersistentSharedKeys]

// WithCompressor enables whole-payload compression of persisted snapshots.
func WithCompressor(c compress.Codec) PersistentOption {
	return options.NoError[*PersistentSharedKeys](func(p *PersistentSharedKeys) {
		p.compressor = c
	})
}

// WithLogger overrides the default NopLogger.
func WithLogger(l Logger) PersistentOption {
	return options.NoError[*PersistentSharedKeys](func(p *PersistentSharedKeys) {
		p.logger = l
	})
}

// NewPersistent creates a PersistentSharedKeys backed by storage. It holds no
// keys until Refresh or TransactionBegan is called.
func NewPersistent(storage Storage, opts ...PersistentOption) *PersistentSharedKeys {
	p := &PersistentSharedKeys{
		SharedKeys: New(),
		storage:    storage,
		logger:     NopLogger{},
	}

	_ = options.Apply(p, opts...)

	return p
}

func (p *PersistentSharedKeys) refreshLocked(ctx context.Context) error {
	data, ok, err := p.storage.Read(ctx)
	if err != nil {
		return fmt.Errorf("sharedkeys: read persisted state: %w", err)
	}
	if !ok {
		return nil
	}

	if p.compressor != nil {
		data, err = p.compressor.Decompress(data)
		if err != nil {
			return fmt.Errorf("sharedkeys: decompress persisted state: %w", err)
		}
	}

	strs, ok := decodeStringArray(data)
	if !ok {
		return fmt.Errorf("%w: persisted shared keys payload is not a string array", errs.ErrInvalidData)
	}

	if err := p.SharedKeys.LoadFrom(strs); err != nil {
		return err
	}

	p.committedCount = len(strs)
	if p.committedCount > p.savedCount {
		p.savedCount = p.committedCount
	}

	return nil
}

// Refresh absorbs any keys committed by other processes since the last
// refresh. It must not be called while a transaction is open; use
// TransactionBegan instead, which refreshes as part of opening.
func (p *PersistentSharedKeys) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	return p.refreshLocked(ctx)
}

// TransactionBegan refreshes from storage and then opens the table for new
// key assignment.
func (p *PersistentSharedKeys) TransactionBegan(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	if err := p.refreshLocked(ctx); err != nil {
		return err
	}

	p.SharedKeys.TransactionBegan()

	return nil
}

// TransactionEnded closes the table to new key assignment and promotes
// whatever was added during the transaction to the Revert baseline.
func (p *PersistentSharedKeys) TransactionEnded() {
	p.SharedKeys.TransactionEnded()
	p.committedCount = p.SharedKeys.Count()
}

// Revert rolls back any keys added since the last refresh or transaction end,
// discarding keys that were never saved.
func (p *PersistentSharedKeys) Revert() {
	p.SharedKeys.RevertToCount(p.committedCount)
}

// WithTransaction runs fn with a refreshed, writable table, guaranteeing
// TransactionEnded runs; on error from fn it reverts before returning.
func (p *PersistentSharedKeys) WithTransaction(ctx context.Context, fn func() error) error {
	if err := p.TransactionBegan(ctx); err != nil {
		return err
	}
	defer p.TransactionEnded()

	if err := fn(); err != nil {
		p.Revert()
		return err
	}

	return nil
}

// Save persists the table to storage if any keys were added since the last
// successful Save.
func (p *PersistentSharedKeys) Save(ctx context.Context) error {
	newCount := p.SharedKeys.Count()
	if newCount == p.savedCount {
		return nil
	}

	strs := p.SharedKeys.Strings()
	data := encodeStringArray(strs)

	if p.compressor != nil {
		var err error
		data, err = p.compressor.Compress(data)
		if err != nil {
			return fmt.Errorf("sharedkeys: compress persisted state: %w", err)
		}
	}

	if err := p.storage.Write(ctx, data); err != nil {
		return fmt.Errorf("sharedkeys: write persisted state: %w", err)
	}

	p.logger.Printf("sharedkeys: saved %d keys (%d new)", newCount, newCount-p.savedCount)
	p.savedCount = newCount

	return nil
}
