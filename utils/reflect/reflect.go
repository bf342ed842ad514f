/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package reflect provides utility functions for reflection-based operations.
// It enumerates the method sets exposed by proxies and computes the names
// used by type filters.
//
// Key features:
// - Methods: Lists the exported methods of an interface or concrete type as *types.Method
// - MethodByName: Looks up one method
// - IndirectType: Strips pointer indirections
// - QualifiedName / SimpleName: Names matched by type name patterns
package reflect

import (
	"reflect"
	"sort"

	"github.com/rulego/aop/api/types"
)

// IndirectType strips all pointer indirections of t.
func IndirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// QualifiedName returns "pkgPath.Name" of the indirect type, or its String() for unnamed types.
// QualifiedName 返回去掉指针后的 "包路径.类型名"
func QualifiedName(t reflect.Type) string {
	t = IndirectType(t)
	if t == nil {
		return ""
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// SimpleName returns the name of the indirect type without package.
func SimpleName(t reflect.Type) string {
	t = IndirectType(t)
	if t == nil {
		return ""
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// Methods returns the exported methods of t sorted by name.
// For interface types the declaring type is the interface itself, otherwise it is t.
// Methods 返回类型 t 导出的方法列表，按名称排序
func Methods(t reflect.Type) []*types.Method {
	if t == nil {
		return nil
	}
	n := t.NumMethod()
	methods := make([]*types.Method, 0, n)
	for i := 0; i < n; i++ {
		methods = append(methods, toMethod(t, t.Method(i)))
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// MethodByName returns the exported method name of t.
func MethodByName(t reflect.Type, name string) (*types.Method, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.MethodByName(name)
	if !ok {
		return nil, false
	}
	return toMethod(t, m), true
}

// Implements reports whether t implements the interface type iface.
func Implements(t reflect.Type, iface reflect.Type) bool {
	if t == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	return t.Implements(iface)
}

func toMethod(t reflect.Type, m reflect.Method) *types.Method {
	if t.Kind() == reflect.Interface {
		return types.NewMethod(m.Name, t, m.Type)
	}
	//去掉接收者参数
	in := make([]reflect.Type, 0, m.Type.NumIn()-1)
	for i := 1; i < m.Type.NumIn(); i++ {
		in = append(in, m.Type.In(i))
	}
	out := make([]reflect.Type, 0, m.Type.NumOut())
	for i := 0; i < m.Type.NumOut(); i++ {
		out = append(out, m.Type.Out(i))
	}
	return types.NewMethod(m.Name, t, reflect.FuncOf(in, out, m.Type.IsVariadic()))
}
