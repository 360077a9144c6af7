// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

package blockchain

import (
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Executor is the safe dispatch shim between an untrusted JSON-RPC method
// name and the Blockchain's exported surface: it never walks the method set
// of an arbitrary name, only names pre-registered in its whitelist, so a
// caller can never reach a method by guessing or by prototype-walking.
type Executor struct {
	ledger    interface{}
	whitelist map[string]bool
}

// NewExecutor binds ledger (typically a *Blockchain) and the exact set of
// method names callers may invoke through Call.
func NewExecutor(ledger interface{}, whitelist []string) *Executor {
	wl := make(map[string]bool, len(whitelist))
	for _, name := range whitelist {
		wl[name] = true
	}
	return &Executor{ledger: ledger, whitelist: wl}
}

// Call dispatches name with args against the bound ledger, returning
// InvalidMethod for every rejection named in the whitelist contract: empty
// name, "constructor", unexported, not whitelisted, or not a resolvable,
// callable method.
func (x *Executor) Call(name string, args ...interface{}) ([]reflect.Value, error) {
	if name == "" || name == "constructor" || !exported(name) || !x.whitelist[name] {
		return nil, &InvalidMethod{Name: name}
	}

	method := reflect.ValueOf(x.ledger).MethodByName(name)
	if !method.IsValid() || !method.CanInterface() {
		return nil, &InvalidMethod{Name: name}
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	return method.Call(in), nil
}

func exported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
