package manager

import (
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/extension"
)

// buildSchema merges node and mark specs in extension order. The first
// entry for a name wins; later ones are resolved by collision.
func (m *Manager) buildSchema() (*model.Schema, error) {
	var spec model.SchemaSpec
	nodeOwner := make(map[string]extension.Extension)
	markOwner := make(map[string]extension.Extension)

	for _, ext := range m.extensions {
		if p, ok := ext.(extension.NodeSpecProvider); ok {
			ns := p.NodeSpec()
			if ns.Name == "" {
				ns.Name = ext.Name()
			}
			if winner, taken := nodeOwner[ns.Name]; taken {
				if err := m.collision("node", ns.Name, winner, ext); err != nil {
					return nil, err
				}
			} else {
				nodeOwner[ns.Name] = ext
				spec.Nodes = append(spec.Nodes, ns)
			}
		}
		if p, ok := ext.(extension.MarkSpecProvider); ok {
			ms := p.MarkSpec()
			if ms.Name == "" {
				ms.Name = ext.Name()
			}
			if winner, taken := markOwner[ms.Name]; taken {
				if err := m.collision("mark", ms.Name, winner, ext); err != nil {
					return nil, err
				}
			} else {
				markOwner[ms.Name] = ext
				spec.Marks = append(spec.Marks, ms)
			}
		}
	}

	schema, err := model.NewSchema(spec)
	if err != nil {
		return nil, &ConfigError{Extension: "manager", Name: "schema", Err: err}
	}
	return schema, nil
}
