package compiler

import (
	"fmt"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/schema"
)

// Schema is everything compiled from one set of CUE files, in declaration
// order.
type Schema struct {
	Models      []ir.ModelDefinition
	Datasources []ir.DatasourceDefinition
}

// Model returns the compiled model named name.
func (s *Schema) Model(name string) (*ir.ModelDefinition, bool) {
	for i := range s.Models {
		if s.Models[i].Name == name {
			return &s.Models[i], true
		}
	}
	return nil, false
}

// Register adds every definition to reg. It stops at the first rejected
// definition; definitions registered before it stay registered.
func (s *Schema) Register(reg *schema.Registry) error {
	for _, ds := range s.Datasources {
		if err := reg.RegisterDatasource(ds); err != nil {
			return fmt.Errorf("register datasource %s: %w", ds.Name, err)
		}
	}
	for _, m := range s.Models {
		if err := reg.RegisterModel(m); err != nil {
			return fmt.Errorf("register model %s: %w", m.Name, err)
		}
	}
	return nil
}
