// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package postgrestest provides a scripted [postgres.DB] for repository tests.

Statements are answered in order from canned rows and exec results, and every
statement is recorded so a test can assert on the SQL a repository issued and
on whether its transaction committed.
*/
package postgrestest

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnscripted is returned when a repository issues more statements than scripted.
var ErrUnscripted = errors.New("postgrestest: statement not scripted")

// Row is a canned single-row result. Err wins over Values.
type Row struct {
	Values []any
	Err    error
}

// Scan copies Values into dest pairwise.
func (row Row) Scan(dest ...any) error {
	if row.Err != nil {
		return row.Err
	}
	if len(dest) != len(row.Values) {
		return fmt.Errorf("postgrestest: scan %d values into %d targets", len(row.Values), len(dest))
	}
	for i, value := range row.Values {
		target := reflect.ValueOf(dest[i]).Elem()
		target.Set(reflect.ValueOf(value).Convert(target.Type()))
	}
	return nil
}

// Result is a canned Exec outcome. Tag is a command tag such as "DELETE 1".
type Result struct {
	Tag string
	Err error
}

// Statement is one recorded call.
type Statement struct {
	SQL  string
	Args []any
}

// DB answers QueryRow from Rows and Exec from Results, in order. Begin hands
// out a transaction drawing on the same script.
type DB struct {
	Rows      []Row
	Results   []Result
	BeginErr  error
	CommitErr error

	Statements []Statement
	Committed  bool
	RolledBack bool
}

func (db *DB) record(sql string, args []any) {
	db.Statements = append(db.Statements, Statement{SQL: sql, Args: args})
}

// Begin opens a scripted transaction.
func (db *DB) Begin(context.Context) (pgx.Tx, error) {
	if db.BeginErr != nil {
		return nil, db.BeginErr
	}
	return &tx{db: db}, nil
}

// QueryRow pops the next canned row.
func (db *DB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	if len(db.Rows) == 0 {
		return Row{Err: ErrUnscripted}
	}
	row := db.Rows[0]
	db.Rows = db.Rows[1:]
	return row
}

// Exec pops the next canned result. An exhausted script fails with [ErrUnscripted].
func (db *DB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	if len(db.Results) == 0 {
		return pgconn.NewCommandTag("SELECT 0"), ErrUnscripted
	}
	result := db.Results[0]
	db.Results = db.Results[1:]
	return pgconn.NewCommandTag(result.Tag), result.Err
}

// Query is not scripted; multi-row reads are covered against a real database.
func (db *DB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	return nil, ErrUnscripted
}

// SQL returns the recorded statements' text in order.
func (db *DB) SQL() []string {
	statements := make([]string, len(db.Statements))
	for i, statement := range db.Statements {
		statements[i] = statement.SQL
	}
	return statements
}

// tx implements the parts of pgx.Tx repositories touch.
type tx struct {
	pgx.Tx
	db     *DB
	closed bool
}

func (transaction *tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return transaction.db.QueryRow(ctx, sql, args...)
}

func (transaction *tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return transaction.db.Exec(ctx, sql, args...)
}

func (transaction *tx) Commit(context.Context) error {
	if transaction.db.CommitErr != nil {
		return transaction.db.CommitErr
	}
	transaction.closed = true
	transaction.db.Committed = true
	return nil
}

func (transaction *tx) Rollback(context.Context) error {
	if transaction.closed {
		return pgx.ErrTxClosed
	}
	transaction.closed = true
	transaction.db.RolledBack = true
	return nil
}
