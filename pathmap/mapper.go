package pathmap

import (
	"log/slog"

	"github.com/freekieb7/bastro/filesystem"
	"github.com/freekieb7/bastro/http"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Registrar is the part of http.Router the mapper needs.
type Registrar interface {
	AddRoute(method http.Method, url string, handler http.Handler) error
}

// Mapping pairs a derived URL with the file behind it.
type Mapping struct {
	Mode Mode
	URL  string
	File string
}

type Mapper struct {
	FS     filesystem.Filesystem
	Routes Registrar
	Logger *slog.Logger
}

func NewMapper(fs filesystem.Filesystem, routes Registrar, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mapper{
		FS:     fs,
		Routes: routes,
		Logger: logger,
	}
}

// Plan lists the routes folder would produce without reading any content.
func (mapper *Mapper) Plan(mode Mode, rootURL, folder string) ([]Mapping, error) {
	files, err := EnumerateFiles(mapper.FS, folder)
	if err != nil {
		return nil, err
	}

	mappings := make([]Mapping, 0, len(files))
	for _, file := range files {
		url, err := URL(mode, rootURL, folder, file)
		if err != nil {
			return nil, err
		}

		mappings = append(mappings, Mapping{
			Mode: mode,
			URL:  url,
			File: file,
		})
	}

	return mappings, nil
}

func (mapper *Mapper) MapFolder(mode Mode, rootURL, folder string) error {
	switch mode {
	case ModePage:
		return mapper.RouteFolder(rootURL, folder)
	case ModeAsset:
		return mapper.ServeFolder(rootURL, folder)
	default:
		return errors.Errorf("pathmap: unknown mode %s", mode)
	}
}

// RouteFolder registers a GET route per file serving the content as read
// now. Every file is read before anything is registered; if any read fails
// nothing is registered and all failures are returned together.
func (mapper *Mapper) RouteFolder(rootURL, folder string) error {
	mappings, err := mapper.Plan(ModePage, rootURL, folder)
	if err != nil {
		return err
	}

	var result *multierror.Error
	contents := make([]string, len(mappings))
	for i, mapping := range mappings {
		content, err := mapper.FS.ReadFile(mapping.File)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "pathmap: read %s", mapping.File))
			continue
		}
		contents[i] = string(content)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for i, mapping := range mappings {
		if err := mapper.Routes.AddRoute(http.MethodGet, mapping.URL, http.StaticHandler(http.StatusOK, contents[i])); err != nil {
			return errors.Wrapf(err, "pathmap: register %s", mapping.File)
		}
		mapper.Logger.Debug("page route registered", "url", mapping.URL, "file", mapping.File)
	}

	return nil
}

// ServeFolder registers a GET route per file that reads the file again on
// every request. A failed read is logged and the request gets no response.
func (mapper *Mapper) ServeFolder(rootURL, folder string) error {
	mappings, err := mapper.Plan(ModeAsset, rootURL, folder)
	if err != nil {
		return err
	}

	for _, mapping := range mappings {
		if err := mapper.Routes.AddRoute(http.MethodGet, mapping.URL, mapper.assetHandler(mapping.File)); err != nil {
			return errors.Wrapf(err, "pathmap: register %s", mapping.File)
		}
		mapper.Logger.Debug("asset route registered", "url", mapping.URL, "file", mapping.File)
	}

	return nil
}

func (mapper *Mapper) assetHandler(file string) http.Handler {
	return func(req *http.Request, res http.Response) {
		content, err := mapper.FS.ReadFile(file)
		if err != nil {
			mapper.Logger.ErrorContext(req.Context(), "reading asset failed", "file", file, "error", err)
			return
		}

		res.Send(http.StatusOK, string(content))
	}
}
