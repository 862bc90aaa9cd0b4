package memory_test

import (
	"testing"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/repotest"
)

func TestMemoryRepository(t *testing.T) {
	var _ simplecatalog.Repository = memory.New()

	repotest.Run(t, func(t *testing.T) simplecatalog.Repository {
		return memory.New()
	})
}
