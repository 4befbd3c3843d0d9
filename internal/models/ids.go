// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

import (
	"strings"

	"github.com/google/uuid"
)

// namespace scopes every derived identifier
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matthewgall/meterlens"))

// DerivedID returns a stable identifier for an entity computed from its
// parts, so recomputing the same entity yields the same ID
func DerivedID(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "|"))).String()
}

// NewID returns a random identifier for entities created by users
func NewID() string {
	return uuid.NewString()
}
