package logfilewriter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:generate mockgen -source=output_writer.go -destination=logfilewritermock/output_writer_mock.go -package=logfilewritermock

const (
	_fmtOutputKey = "output:%s"
	_logsDirName  = "ulsp-bridge"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Factory creates output writers for human readable output that is kept apart from overall bridge logging.
type Factory interface {
	New(name string) (Writer, error)
}

// Writer receives output for a single consumer, such as a language server's stderr.
// Close flushes the output and removes the backing file.
type Writer interface {
	io.WriteCloser
	Path() string
}

// Params define the dependencies for the Factory.
type Params struct {
	fx.In

	FS             fs.UlspFS
	ServerInfoFile serverinfofile.ServerInfoFile
	Logger         *zap.SugaredLogger
}

type factory struct {
	fs             fs.UlspFS
	serverInfoFile serverinfofile.ServerInfoFile
	logger         *zap.SugaredLogger
}

// New creates a Factory.
func New(p Params) Factory {
	return &factory{
		fs:             p.FS,
		serverInfoFile: p.ServerInfoFile,
		logger:         p.Logger,
	}
}

// New creates a writer backed by a temporary file for reference by the user.
// The file path is stored in the server info file under "output:<name>".
func (f *factory) New(name string) (Writer, error) {
	// Output to be stored in a log file under a custom directory in the user's temp directory.
	logsDirPath := filepath.Join(f.fs.TempDir(), _logsDirName)
	if err := f.fs.MkdirAll(logsDirPath); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	logFile, err := f.fs.TempFile(logsDirPath, sanitize(name)+"-*.log")
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}

	key := fmt.Sprintf(_fmtOutputKey, name)
	if err := f.serverInfoFile.UpdateField(key, logFile.Name()); err != nil {
		f.logger.Warnw("recording output file failed", "name", name, zap.Error(err))
	}

	// Write via a logger for formatting, timestamp, and performance/buffering.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel,
	)

	w := &loggerWriter{
		fileLogger: zap.New(core).Sugar(),
		mirror:     f.logger.With("output", name),
		path:       logFile.Name(),
		closeFn: func() error {
			var errs error
			errs = multierr.Append(errs, logFile.Close())
			errs = multierr.Append(errs, f.fs.Remove(logFile.Name()))
			errs = multierr.Append(errs, f.serverInfoFile.RemoveField(key))
			return errs
		},
	}
	return w, nil
}

type loggerWriter struct {
	fileLogger *zap.SugaredLogger
	mirror     *zap.SugaredLogger
	path       string

	closeOnce sync.Once
	closeFn   func() error
	closeErr  error
}

// Write implements the io.Writer interface by sending data to the given logger.
func (o *loggerWriter) Write(p []byte) (n int, err error) {
	// Incoming data may contain multiple lines, including blank ones.
	// Split and log each line individually.
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if len(line) > 0 {
			o.fileLogger.Info(line)
			o.mirror.Debug(line)
		}
	}

	return len(p), nil
}

func (o *loggerWriter) Path() string {
	return o.path
}

func (o *loggerWriter) Close() error {
	o.closeOnce.Do(func() {
		// Sync reports spurious errors for some file types, only the close result matters.
		_ = o.fileLogger.Sync()
		o.closeErr = o.closeFn()
	})
	return o.closeErr
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', ' ':
			return '_'
		}
		return r
	}, name)
}
