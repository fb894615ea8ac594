/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package router

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DataNode is an actual table on a data source.
type DataNode struct {
	DataSource string `json:"data-source"`
	Table      string `json:"table"`
}

// String returns ds.table.
func (n DataNode) String() string {
	return fmt.Sprintf("%s.%s", n.DataSource, n.Table)
}

// ParseDataNode parses `ds.table`.
func ParseDataNode(text string) (DataNode, error) {
	parts := strings.Split(strings.TrimSpace(text), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DataNode{}, errors.Errorf("router.data.node[%s].malformed", text)
	}
	return DataNode{DataSource: parts[0], Table: parts[1]}, nil
}

// ParseDataNodes expands an inline expression such as ds_${0..1}.t_order_${0..1}.
func ParseDataNodes(expr string) ([]DataNode, error) {
	texts, err := ExpandInline(expr)
	if err != nil {
		return nil, err
	}
	nodes := make([]DataNode, 0, len(texts))
	seen := make(map[DataNode]struct{}, len(texts))
	for _, text := range texts {
		node, err := ParseDataNode(text)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[node]; ok {
			return nil, errors.Errorf("router.data.node[%s].duplicate", node)
		}
		seen[node] = struct{}{}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
