/*
 * Copyright 2024 The AspectGo Authors.
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

// Package str provides small string helpers shared by the builtin advices.
package str

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/aspectgo/aspectgo/utils/json"
)

const randomStrOptions = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const randomStrOptionsLen = len(randomStrOptions)

// RandomStr creates a random string of the specified length.
func RandomStr(num int) string {
	var builder strings.Builder
	for i := 0; i < num; i++ {
		builder.WriteByte(randomStrOptions[rand.Intn(randomStrOptionsLen)])
	}
	return builder.String()
}

// ToString converts the input value into a string representation. Structs and
// maps are rendered as json.
func ToString(input interface{}) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case error:
		return v.Error()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		if b, err := json.Marshal(input); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", input)
	}
}

// ConvertDollarPlaceholder converts `?` placeholders into the `$N` style when
// the database driver requires it (postgres).
func ConvertDollarPlaceholder(sql, dbType string) string {
	if dbType == "postgres" {
		n := 0
		var builder strings.Builder
		for _, c := range sql {
			if c == '?' {
				n++
				builder.WriteString("$" + strconv.Itoa(n))
			} else {
				builder.WriteRune(c)
			}
		}
		return builder.String()
	}
	return sql
}

// Contains reports whether target is present in list.
func Contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
