// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"database/sql/driver"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

type printer interface {
	Print(*resultSet) error
	Close() error
}

func newPrinter(format string, w io.Writer) printer {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return &yamlPrinter{enc: enc}
	}
	return &tablePrinter{w: w}
}

// formatCell renders v for display, NULL for missing values and blobs
// as hex literals.
func formatCell(v driver.Value) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%x'", v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	}
	return fmt.Sprint(v)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type tablePrinter struct {
	w io.Writer
}

func (p *tablePrinter) Print(rs *resultSet) error {
	if rs.Columns == nil {
		var err error
		if rs.Affected >= 0 {
			_, err = fmt.Fprintf(p.w, "%d rows affected\n", rs.Affected)
		} else {
			_, err = fmt.Fprintln(p.w, "OK")
		}
		return err
	}

	cells := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = formatCell(v)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(rs.Columns...).
		Rows(cells...)
	_, err := fmt.Fprintf(p.w, "%s\n(%d rows)\n", t.Render(), len(rs.Rows))
	return err
}

func (p *tablePrinter) Close() error { return nil }

// yamlPrinter writes one document per statement, a sequence of row
// mappings in column order, or a mapping holding the changed row count.
type yamlPrinter struct {
	enc *yaml.Encoder
}

func (p *yamlPrinter) Print(rs *resultSet) error {
	if rs.Columns == nil {
		doc := map[string]any{"affected": nil}
		if rs.Affected >= 0 {
			doc["affected"] = rs.Affected
		}
		return p.enc.Encode(doc)
	}

	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rs.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, col := range rs.Columns {
			val := &yaml.Node{}
			if err := val.Encode(yamlValue(row[i])); err != nil {
				return fmt.Errorf("encode %s: %w", col, err)
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col}, val)
		}
		doc.Content = append(doc.Content, m)
	}
	return p.enc.Encode(doc)
}

func yamlValue(v driver.Value) any {
	if b, ok := v.([]byte); ok {
		return formatCell(b)
	}
	return v
}

func (p *yamlPrinter) Close() error { return p.enc.Close() }
