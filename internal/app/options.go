package app

import (
	"github.com/sela-fruits/sela-store/internal/config"

	"gorm.io/gorm"
)

// Run modes selected by the -mode flag
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options for Run. An empty Mode runs the API and the worker together.
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Mode   string
}
