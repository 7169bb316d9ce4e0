package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/internal/db"
)

func testApp(t *testing.T) http.Handler {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	for _, m := range db.Models() {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return NewApp(conn)
}

func TestLangPreferenceSetsSingleCookie(t *testing.T) {
	app := testApp(t)

	r := httptest.NewRequest(http.MethodGet, "/health?lang=en", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d (%s)", w.Code, w.Body.String())
	}

	langCookies := 0
	for _, v := range w.Header().Values("Set-Cookie") {
		if strings.HasPrefix(v, "lang=") {
			langCookies++
		}
	}
	if langCookies != 1 {
		t.Fatalf("lang Set-Cookie headers = %d, want exactly 1", langCookies)
	}
}
