package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kisernl/flashcard-app/internal/models"
	"github.com/kisernl/flashcard-app/internal/store"
)

// Migrate transfers flat-stored stacks and decks into the record store.
//
// The operation is idempotent: every record goes through Put (an upsert), so
// re-running on the same input re-writes identical records. The flat-storage
// keys are deleted only after every write succeeded; on any decode or write
// failure they stay in place and the next application start retries from
// scratch.
func Migrate(ctx context.Context, st store.Store, flat Provider, logger *slog.Logger) error {
	hasStacks := flat.Has(StacksKey)
	hasDecks := flat.Has(DecksKey)
	if !hasStacks && !hasDecks {
		// Fast path: nothing to migrate, the store is not touched.
		return nil
	}

	logger.Info("legacy migration: started",
		slog.Bool("stacks", hasStacks),
		slog.Bool("decks", hasDecks))

	if hasStacks {
		if err := migrateCollection[models.Stack](ctx, st, flat, StacksKey, store.Stacks); err != nil {
			return err
		}
	}
	if hasDecks {
		if err := migrateCollection[models.Deck](ctx, st, flat, DecksKey, store.Decks); err != nil {
			return err
		}
	}

	// All writes landed; only now is it safe to drop the source keys.
	if hasStacks {
		if err := flat.Delete(StacksKey); err != nil {
			return err
		}
	}
	if hasDecks {
		if err := flat.Delete(DecksKey); err != nil {
			return err
		}
	}

	logger.Info("legacy migration: complete")
	return nil
}

// migrateCollection decodes the flat JSON array under key and upserts each
// record into the target collection.
func migrateCollection[T interface{ models.Stack | models.Deck }](
	ctx context.Context, st store.Store, flat Provider, key, collection string,
) error {
	data, err := flat.Read(key)
	if err != nil {
		return err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("legacy: decode %s: %w", key, err)
	}
	// Validate the whole dump before the first write. The read path rejects
	// records that fail these checks, so letting one through would trade a
	// retryable dump for a store that errors on every list.
	recs := make([]store.Record, 0, len(items))
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("legacy: %s record %d: %w", key, i, err)
		}
		rec, err := toRecord(item)
		if err != nil {
			return fmt.Errorf("legacy: encode %s record: %w", key, err)
		}
		recs = append(recs, rec)
	}
	for _, rec := range recs {
		if err := st.Put(ctx, collection, rec); err != nil {
			return err
		}
	}
	return nil
}

// validateItem enforces the invariants the read path checks on decode, so a
// dump that would be unreadable after migration fails here instead, with the
// source keys untouched.
func validateItem(v any) error {
	switch item := v.(type) {
	case models.Stack:
		if item.ID == "" {
			return errors.New("missing id")
		}
		if item.Name == "" {
			return fmt.Errorf("stack %s: blank name", item.ID)
		}
	case models.Deck:
		if item.ID == "" {
			return errors.New("missing id")
		}
	}
	return nil
}

func toRecord(v any) (store.Record, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return store.Record{}, err
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return store.Record{}, err
	}
	return store.Record{ID: probe.ID, Doc: doc}, nil
}
