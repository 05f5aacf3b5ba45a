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

// Package sqltext holds the small amount of SQL text scanning the
// cursor needs: finding the end of the first statement, classifying a
// statement by its leading keyword and locating parameter placeholders.
// It does not parse SQL. Every scan is aware of string literals, quoted
// identifiers and comments so that none of those are mistaken for
// statement separators or placeholders.
package sqltext

import "strings"

// skipQuoted returns the index just past the literal or quoted
// identifier starting at s[i]. A doubled closing quote is an escaped
// quote. Unterminated literals run to the end of s.
func skipQuoted(s string, i int, closing byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != closing {
			continue
		}
		if j+1 < len(s) && s[j+1] == closing {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// skipComment returns the index just past the comment starting at
// s[i], or i if no comment starts there.
func skipComment(s string, i int) int {
	if i+1 >= len(s) {
		return i
	}
	switch {
	case s[i] == '-' && s[i+1] == '-':
		if end := strings.IndexByte(s[i:], '\n'); end >= 0 {
			return i + end + 1
		}
		return len(s)
	case s[i] == '/' && s[i+1] == '*':
		if end := strings.Index(s[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(s)
	}
	return i
}

// skipLiteral advances over any literal, quoted identifier or comment
// at s[i]. It returns i unchanged when s[i] starts none of these.
// Square brackets are not treated as quotes since they delimit list
// literals in some dialects.
func skipLiteral(s string, i int) int {
	switch s[i] {
	case '\'', '"', '`':
		return skipQuoted(s, i, s[i])
	case '-', '/':
		return skipComment(s, i)
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// skipBlank skips whitespace and comments.
func skipBlank(s string, i int) int {
	for i < len(s) {
		if isSpace(s[i]) {
			i++
			continue
		}
		next := skipComment(s, i)
		if next == i {
			return i
		}
		i = next
	}
	return i
}

// SplitFirst returns the text of the first statement in sql, without
// its terminating semicolon, and reports whether any further statement
// text follows it. Whitespace, comments and empty statements after the
// first statement do not count as further statements.
func SplitFirst(sql string) (first string, trailing bool) {
	i := statementEnd(sql, 0)
	first = strings.TrimSpace(sql[:i])

	for i < len(sql) {
		i = skipBlank(sql, i)
		if i >= len(sql) {
			break
		}
		if sql[i] != ';' {
			return first, true
		}
		i++
	}
	return first, false
}

// Split returns the text of every statement in sql in order, without
// terminating semicolons. Empty statements and statements holding only
// comments are dropped.
func Split(sql string) []string {
	var out []string
	for {
		i := skipBlank(sql, 0)
		switch {
		case i >= len(sql):
			return out
		case sql[i] == ';':
			sql = sql[i+1:]
			continue
		}
		end := statementEnd(sql, i)
		out = append(out, strings.TrimSpace(sql[i:end]))
		if end >= len(sql) {
			return out
		}
		sql = sql[end+1:]
	}
}

// statementEnd returns the offset of the semicolon ending the statement
// starting at i, or len(sql).
func statementEnd(sql string, i int) int {
	for i < len(sql) {
		if next := skipLiteral(sql, i); next != i {
			i = next
			continue
		}
		if sql[i] == ';' {
			break
		}
		i++
	}
	return i
}

// words returns the unquoted bare words of sql, upper cased, up to max
// words. A max of zero or less returns every word.
func words(sql string, max int) []string {
	var out []string
	i := 0
	for i < len(sql) {
		if max > 0 && len(out) >= max {
			break
		}
		if next := skipLiteral(sql, i); next != i {
			i = next
			continue
		}
		c := sql[i]
		if isIdentStart(c) {
			j := i + 1
			for j < len(sql) && isIdentChar(sql[j]) {
				j++
			}
			// identifiers introduced by a sigil are placeholders
			if i == 0 || (sql[i-1] != '$' && sql[i-1] != ':' && sql[i-1] != '@') {
				out = append(out, strings.ToUpper(sql[i:j]))
			}
			i = j
			continue
		}
		i++
	}
	return out
}

// FirstKeyword returns the upper cased leading keyword of sql, skipping
// leading whitespace, comments and opening parentheses.
func FirstKeyword(sql string) string {
	i := 0
	for {
		i = skipBlank(sql, i)
		if i < len(sql) && sql[i] == '(' {
			i++
			continue
		}
		break
	}
	j := i
	for j < len(sql) && isIdentChar(sql[j]) {
		j++
	}
	return strings.ToUpper(sql[i:j])
}
