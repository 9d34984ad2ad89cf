package memory

import (
	"testing"

	"github.com/bekicr/universal-clinic/internal/storage"
	"github.com/bekicr/universal-clinic/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}
