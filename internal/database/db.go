package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection before returning
// the pool.  parseTime maps DATETIME columns to time.Time and loc=UTC
// keeps every timestamp comparison (hold expiry in particular) in one
// timezone.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, net.JoinHostPort(host, port), name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// The claim and finalize transactions are short; a modest pool with
	// recycled idle connections keeps MySQL's side tidy under bursts.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
