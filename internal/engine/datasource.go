package engine

import (
	"fmt"
	"io"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/schema"
	"github.com/roach88/modelq/internal/store"
)

// OpenRouter builds a Router with one adapter per registered datasource.
//
// Connectors:
//   - "memory": adapter.Memory
//   - "sqlite": store.Store at settings.path (":memory:" when unset)
//
// When no datasource named adapter.DefaultDatasource is registered, one is
// mounted using defaultPath: a SQLite file when non-empty, memory otherwise.
// On error every adapter opened so far is closed.
func OpenRouter(reg *schema.Registry, resolver *schema.Resolver, defaultPath string) (*adapter.Router, error) {
	router := adapter.NewRouter(resolver)

	mount := func(name string, a adapter.ReadWriter) error {
		if err := router.Mount(name, a); err != nil {
			if c, ok := a.(io.Closer); ok {
				c.Close()
			}
			return err
		}
		return nil
	}

	hasDefault := false
	for _, name := range reg.Datasources() {
		def, err := reg.Datasource(name)
		if err != nil {
			router.Close()
			return nil, err
		}
		a, err := openDatasource(def, resolver)
		if err != nil {
			router.Close()
			return nil, err
		}
		if err := mount(name, a); err != nil {
			router.Close()
			return nil, err
		}
		hasDefault = hasDefault || name == adapter.DefaultDatasource
	}

	if !hasDefault {
		var a adapter.ReadWriter = adapter.NewMemory(resolver)
		if defaultPath != "" {
			s, err := store.Open(defaultPath, resolver)
			if err != nil {
				router.Close()
				return nil, err
			}
			a = s
		}
		if err := mount(adapter.DefaultDatasource, a); err != nil {
			router.Close()
			return nil, err
		}
	}
	return router, nil
}

func openDatasource(def *ir.DatasourceDefinition, resolver *schema.Resolver) (adapter.ReadWriter, error) {
	switch def.Connector {
	case ir.ConnectorMemory:
		return adapter.NewMemory(resolver), nil
	case ir.ConnectorSQLite:
		path := ":memory:"
		if v, ok := def.Settings["path"]; ok {
			s, isString := v.(ir.String)
			if !isString || s == "" {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "datasource %q: path must be a non-empty string", def.Name)
			}
			path = string(s)
		}
		s, err := store.Open(path, resolver)
		if err != nil {
			return nil, fmt.Errorf("datasource %q: %w", def.Name, err)
		}
		return s, nil
	default:
		return nil, ir.Errorf(ir.ErrCodeNotImplemented, "datasource %q: unknown connector %q", def.Name, def.Connector)
	}
}
