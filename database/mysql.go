/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/superkkt/netstate/document"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

const (
	maxDeadlockRetry  = 5
	deadlockBaseDelay = 50 * time.Millisecond

	deadlockErrCode   uint16 = 1213
	duplicatedErrCode uint16 = 1062

	clusterDialerNetwork = "cluster"
)

var (
	maxIdleConn = runtime.NumCPU()
	maxOpenConn = maxIdleConn * 2
)

// MySQL stores each switch document as a JSON column of the switch table and
// mutates it in place using the JSON functions of MySQL 5.7 or later.
type MySQL struct {
	db *sql.DB
}

func NewMySQL() (*MySQL, error) {
	addr := viper.GetString("mysql.addr")
	if err := validateClusterAddr(addr); err != nil {
		return nil, err
	}
	// Register the custom dialer.
	mysql.RegisterDialContext(clusterDialerNetwork, clusterDialer)

	param := "readTimeout=1m&writeTimeout=1m&parseTime=true&loc=Local&maxAllowedPacket=0"
	dsn := fmt.Sprintf("%v:%v@%v(%v)/%v?%v", viper.GetString("mysql.username"), viper.GetString("mysql.password"), clusterDialerNetwork, addr, viper.GetString("mysql.name"), param)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	// Make sure that all the connections are established to a same node, instead of distributing them into multiple nodes.
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}

	result := newMySQL(db)
	if err := result.createTables(); err != nil {
		return nil, err
	}

	return result, nil
}

func newMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

func validateClusterAddr(addr string) error {
	if len(addr) == 0 {
		return errors.New("empty cluster address")
	}

	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")
	if len(token) == 0 {
		return fmt.Errorf("invalid cluster address: %v", addr)
	}

	for _, v := range token {
		if _, err := net.ResolveTCPAddr("tcp", v); err != nil {
			return fmt.Errorf("invalid cluster address: %v: %v", v, err)
		}
	}

	return nil
}

// clusterDialer tries to sequentially connect to each hosts from the address in the
// order of their appearance and then returns the first successfully connected one.
func clusterDialer(ctx context.Context, addr string) (net.Conn, error) {
	token := strings.Split(strings.Replace(addr, " ", "", -1), ",")

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	for _, v := range token {
		logger.Debugf("dialing to %v", v)
		conn, err := dialer.DialContext(ctx, "tcp", v)
		if err == nil {
			// Connected!
			logger.Debugf("successfully connected to %v", v)
			return conn, nil
		}
		logger.Errorf("failed to dial: %v", err)
	}

	return nil, errors.New("failed to dial: no available cluster node")
}

func isDeadlock(err error) bool {
	e, ok := err.(*mysql.MySQLError)
	if !ok {
		return false
	}

	return e.Number == deadlockErrCode
}

func isDuplicated(err error) bool {
	e, ok := err.(*mysql.MySQLError)
	if !ok {
		return false
	}

	return e.Number == duplicatedErrCode
}

func (r *MySQL) query(ctx context.Context, f func(*sql.Tx) error) error {
	deadlockRetry := 0

	for {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(tx)
		// Success?
		if err == nil {
			// Yes! but Commit also may raise an error.
			err = tx.Commit()
			// Success?
			if err == nil {
				// Transaction committed successfully!
				return nil
			}
			// Fallthrough!
		}
		// No! query failed.
		tx.Rollback()

		// Need to retry due to a deadlock?
		if !isDeadlock(err) || deadlockRetry >= maxDeadlockRetry {
			// No, do not retry and just return the error.
			return err
		}
		// Yes, a deadlock occurrs. Re-execute the queries again after some sleep!
		logger.Infof("query failed due to a deadlock: caller=%v", caller())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deadlockBackoff(deadlockRetry)):
		}
		deadlockRetry++
	}
}

// deadlockBackoff returns a random delay before the n-th retry (from zero) of a
// transaction aborted by a deadlock. The upper bound doubles on every retry so
// that the competing transactions spread out.
func deadlockBackoff(n int) time.Duration {
	if n > maxDeadlockRetry {
		n = maxDeadlockRetry
	}

	return time.Duration(rand.Int63n(int64(deadlockBaseDelay<<n))) + time.Millisecond
}

func caller() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}

	f := runtime.FuncForPC(pc)
	if f == nil {
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("%v (%v:%v)", f.Name(), file, line)
}

func (r *MySQL) NewID() DocumentID {
	return newUUID()
}

// Dump returns all the documents sorted by switch name.
func (r *MySQL) Dump(ctx context.Context) (docs []Document, err error) {
	f := func(tx *sql.Tx) error {
		// Clear the result of the previous attempt, if any.
		docs = nil

		rows, err := tx.QueryContext(ctx, "SELECT `id`, `document` FROM `switch` ORDER BY `name`")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			var data []byte
			if err := rows.Scan(&id, &data); err != nil {
				return err
			}
			tree, err := document.Parse(data)
			if err != nil {
				return fmt.Errorf("decoding document %v: %v", id, err)
			}
			record, err := decodeRecord(tree)
			if err != nil {
				return fmt.Errorf("decoding document %v: %v", id, err)
			}
			docs = append(docs, Document{ID: DocumentID(id), Record: record})
		}

		return rows.Err()
	}
	if err = r.query(ctx, f); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = make([]Document, 0)
	}

	return docs, nil
}

// Apply executes all the mutations in a transaction. A failed statement does
// not stop the others, and the failures are returned as a *BulkError. The
// whole batch is executed again if a deadlock occurs.
func (r *MySQL) Apply(ctx context.Context, mutations []Mutation) error {
	var failed []error

	f := func(tx *sql.Tx) error {
		// Clear the result of the previous attempt, if any.
		failed = nil

		for _, v := range mutations {
			err := execMutation(ctx, tx, v)
			if err == nil {
				continue
			}
			// A deadlock rolls back the whole transaction.
			if isDeadlock(err) {
				return err
			}
			failed = append(failed, fmt.Errorf("%v: %v", v, err))
		}

		return nil
	}
	if err := r.query(ctx, f); err != nil {
		return err
	}
	if len(failed) > 0 {
		return &BulkError{Errors: failed, Attempted: len(mutations)}
	}

	return nil
}

func execMutation(ctx context.Context, tx *sql.Tx, m Mutation) error {
	switch m.Op {
	case OpInsert:
		data, err := json.Marshal(m.Value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO `switch` (`id`, `name`, `document`) VALUES (?, ?, ?)", string(m.ID), m.Switch, string(data))
		if isDuplicated(err) {
			return fmt.Errorf("duplicated document: %v", err)
		}
		return err

	case OpDelete:
		result, err := tx.ExecContext(ctx, "DELETE FROM `switch` WHERE `id` = ?", string(m.ID))
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			logger.Warningf("deleting a missing document: %v", m)
		}
		return nil

	case OpSet:
		data, err := json.Marshal(m.Value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE `switch` SET `document` = JSON_SET(`document`, ?, CAST(? AS JSON)) WHERE `id` = ?", m.Path.JSONPath(), string(data), string(m.ID))
		return err

	case OpUnset, OpPull:
		_, err := tx.ExecContext(ctx, "UPDATE `switch` SET `document` = JSON_REMOVE(`document`, ?) WHERE `id` = ?", m.Path.JSONPath(), string(m.ID))
		return err

	case OpAppend:
		data, err := json.Marshal(m.Value)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE `switch` SET `document` = JSON_ARRAY_APPEND(`document`, ?, CAST(? AS JSON)) WHERE `id` = ?", m.Path.JSONPath(), string(data), string(m.ID))
		return err

	default:
		return fmt.Errorf("unexpected mutation operation: %v", m.Op)
	}
}

// Drop removes all the documents.
func (r *MySQL) Drop(ctx context.Context) error {
	return r.query(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM `switch`")
		return err
	})
}

func (r *MySQL) String() string {
	return "mysql"
}

func (r *MySQL) Close() error {
	return r.db.Close()
}
