package cli

import (
	"io"
	"os"
	"testing"

	"github.com/google/logger"
)

func TestMain(m *testing.M) {
	logger.Init("test", false, false, io.Discard)
	os.Exit(m.Run())
}
