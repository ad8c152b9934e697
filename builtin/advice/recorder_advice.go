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

package advice

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/maps"
	"github.com/aspectgo/aspectgo/utils/str"
)

// DbRecorderConfiguration configures the invocation audit recorder.
type DbRecorderConfiguration struct {
	// DriverName is the database driver, mysql or postgres.
	DriverName string
	// Dsn is the connection string, see sql.Open.
	Dsn string
	// PoolSize is the connection pool size.
	PoolSize int
	// TableName is the audit table. Expected columns:
	// invocation_id, target_type, method, success, error_message, duration_ms, created_at.
	TableName string
}

// DbRecorderAdvice writes one audit row per intercepted call. Recording is
// best effort: a failed insert is logged and never changes the call outcome.
type DbRecorderAdvice struct {
	Config DbRecorderConfiguration

	logger    types.Logger
	client    *sql.DB
	insertSQL string
	locker    sync.Mutex
}

var _ types.AdviceComponent = (*DbRecorderAdvice)(nil)

func (x *DbRecorderAdvice) Type() string {
	return "dbRecorder"
}

func (x *DbRecorderAdvice) New() types.AdviceComponent {
	return &DbRecorderAdvice{Config: DbRecorderConfiguration{
		DriverName: "mysql",
		Dsn:        "root:root@tcp(127.0.0.1:3306)/aspectgo",
		TableName:  "invocation_audit",
	}}
}

func (x *DbRecorderAdvice) Init(config types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if x.Config.DriverName == "" {
		x.Config.DriverName = "mysql"
	}
	if x.Config.Dsn == "" {
		return errors.New("dsn can not be empty")
	}
	if x.Config.TableName == "" {
		x.Config.TableName = "invocation_audit"
	}
	x.logger = config.Logger
	if x.logger == nil {
		x.logger = types.DefaultLogger()
	}
	x.insertSQL = str.ConvertDollarPlaceholder(
		"INSERT INTO "+x.Config.TableName+
			" (invocation_id, target_type, method, success, error_message, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		x.Config.DriverName)
	_, err = x.initClient()
	return err
}

func (x *DbRecorderAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	start := time.Now()
	result, err := invocation.Proceed()
	x.record(invocation, err, time.Since(start))
	return result, err
}

// record inserts the audit row. Errors are logged only; audit must never
// change what the caller sees.
func (x *DbRecorderAdvice) record(invocation types.Invocation, callErr error, duration time.Duration) {
	client, err := x.initClient()
	if err != nil {
		x.logger.Printf("dbRecorder: no database client: %v", err)
		return
	}
	errMessage := ""
	if callErr != nil {
		errMessage = callErr.Error()
	}
	_, err = client.Exec(x.insertSQL,
		invocation.ID(),
		invocation.TargetType().String(),
		invocation.Method().Name,
		callErr == nil,
		errMessage,
		duration.Milliseconds(),
		time.Now(),
	)
	if err != nil {
		x.logger.Printf("dbRecorder: insert audit row failed: %v", err)
	}
}

func (x *DbRecorderAdvice) Destroy() {
	if x.client != nil {
		_ = x.client.Close()
	}
}

func (x *DbRecorderAdvice) initClient() (*sql.DB, error) {
	if x.client != nil {
		return x.client, nil
	}
	x.locker.Lock()
	defer x.locker.Unlock()
	if x.client != nil {
		return x.client, nil
	}
	client, err := sql.Open(x.Config.DriverName, x.Config.Dsn)
	if err != nil {
		return nil, err
	}
	if x.Config.PoolSize > 0 {
		client.SetMaxOpenConns(x.Config.PoolSize)
		client.SetMaxIdleConns(x.Config.PoolSize / 2)
	}
	x.client = client
	return x.client, nil
}
