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
	"errors"
	"testing"
	"time"

	"github.com/superkkt/netstate/document"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
)

func newMock(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return newMySQL(db), mock
}

const (
	insertQuery = "INSERT INTO `switch` (`id`, `name`, `document`) VALUES (?, ?, ?)"
	deleteQuery = "DELETE FROM `switch` WHERE `id` = ?"
	setQuery    = "UPDATE `switch` SET `document` = JSON_SET(`document`, ?, CAST(? AS JSON)) WHERE `id` = ?"
	removeQuery = "UPDATE `switch` SET `document` = JSON_REMOVE(`document`, ?) WHERE `id` = ?"
	appendQuery = "UPDATE `switch` SET `document` = JSON_ARRAY_APPEND(`document`, ?, CAST(? AS JSON)) WHERE `id` = ?"
	dumpQuery   = "SELECT `id`, `document` FROM `switch` ORDER BY `name`"
)

func TestMySQLApply(t *testing.T) {
	store, mock := newMock(t)

	ipv4 := document.Path{document.Key("connectedHosts"), document.Key("s1-eth1"), document.Key("ipv4")}
	mutations := []Mutation{
		{Op: OpInsert, ID: "id-2", Switch: "0000000000000002", Value: map[string]interface{}{"name": "0000000000000002"}},
		{Op: OpSet, ID: "id-1", Switch: "0000000000000001", Path: document.Path{document.Key("portMappings"), document.Key("s1-eth2")}, Value: "s2-eth2"},
		{Op: OpUnset, ID: "id-1", Switch: "0000000000000001", Path: document.Path{document.Key("installedFlows"), document.Key("8a1d2f")}},
		{Op: OpAppend, ID: "id-1", Switch: "0000000000000001", Path: ipv4, Value: "10.0.0.11"},
		{Op: OpPull, ID: "id-1", Switch: "0000000000000001", Path: ipv4.Append(document.Index(3))},
		{Op: OpDelete, ID: "id-3", Switch: "0000000000000003"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(insertQuery).WithArgs("id-2", "0000000000000002", `{"name":"0000000000000002"}`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(setQuery).WithArgs(`$."portMappings"."s1-eth2"`, `"s2-eth2"`, "id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(removeQuery).WithArgs(`$."installedFlows"."8a1d2f"`, "id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(appendQuery).WithArgs(`$."connectedHosts"."s1-eth1"."ipv4"`, `"10.0.0.11"`, "id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(removeQuery).WithArgs(`$."connectedHosts"."s1-eth1"."ipv4"[3]`, "id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQuery).WithArgs("id-3").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Apply(context.Background(), mutations); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMySQLApplyPartialFailure(t *testing.T) {
	store, mock := newMock(t)

	mutations := []Mutation{
		{Op: OpInsert, ID: "id-1", Switch: "0000000000000001", Value: map[string]interface{}{}},
		{Op: OpDelete, ID: "id-2", Switch: "0000000000000002"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(insertQuery).WithArgs("id-1", "0000000000000001", `{}`).WillReturnError(&mysql.MySQLError{Number: duplicatedErrCode, Message: "Duplicate entry"})
	mock.ExpectExec(deleteQuery).WithArgs("id-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(), mutations)
	var e *BulkError
	if !errors.As(err, &e) {
		t.Fatalf("expected bulk error, got=%v", err)
	}
	if len(e.Errors) != 1 || e.Attempted != 2 {
		t.Fatalf("unexpected bulk error: %v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMySQLApplyDeadlockRetry(t *testing.T) {
	store, mock := newMock(t)

	mutations := []Mutation{
		{Op: OpDelete, ID: "id-1", Switch: "0000000000000001"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(deleteQuery).WithArgs("id-1").WillReturnError(&mysql.MySQLError{Number: deadlockErrCode, Message: "Deadlock found"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(deleteQuery).WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Apply(context.Background(), mutations); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeadlockBackoff(t *testing.T) {
	for n := 0; n <= maxDeadlockRetry+2; n++ {
		limit := deadlockBaseDelay << n
		if n > maxDeadlockRetry {
			limit = deadlockBaseDelay << maxDeadlockRetry
		}
		for i := 0; i < 100; i++ {
			d := deadlockBackoff(n)
			if d < time.Millisecond || d > limit+time.Millisecond {
				t.Fatalf("unexpected backoff for retry #%v: %v", n, d)
			}
		}
	}
}

func TestMySQLDump(t *testing.T) {
	store, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "document"}).
		AddRow("id-1", []byte(`{"name": "0000000000000001", "portMappings": {"s1-eth2": "s2-eth2"}, "installedFlows": {"f1": {"cookie": 18446744073709551615}}}`)).
		AddRow("id-2", []byte(`{"name": "0000000000000002"}`))
	mock.ExpectBegin()
	mock.ExpectQuery(dumpQuery).WillReturnRows(rows)
	mock.ExpectCommit()

	docs, err := store.Dump(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("unexpected number of documents: %v", len(docs))
	}
	if docs[0].ID != "id-1" || docs[0].Record.Name != "0000000000000001" || docs[1].ID != "id-2" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	if diff := cmp.Diff(map[string]string{"s1-eth2": "s2-eth2"}, docs[0].Record.PortMappings); diff != "" {
		t.Fatalf("unexpected port mappings: %v", diff)
	}
	if docs[0].Record.InstalledFlows["f1"].Cookie != ^uint64(0) {
		t.Fatalf("unexpected cookie: %v", docs[0].Record.InstalledFlows["f1"].Cookie)
	}
	// Missing fields are normalized into empty containers.
	if docs[1].Record.Ports == nil || docs[1].Record.InstalledFlows == nil {
		t.Fatalf("expected normalized record: %+v", docs[1].Record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMySQLDrop(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `switch`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := store.Drop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateClusterAddr(t *testing.T) {
	src := []struct {
		Addr  string
		Valid bool
	}{
		{"", false},
		{"127.0.0.1:3306", true},
		{"127.0.0.1:3306, 127.0.0.2:3306", true},
		{"127.0.0.1", false},
	}

	for _, v := range src {
		err := validateClusterAddr(v.Addr)
		if (err == nil) != v.Valid {
			t.Fatalf("unexpected result: addr=%v, expected valid=%v, got=%v", v.Addr, v.Valid, err)
		}
	}
}
