package models

import "errors"

// ErrNotFound возвращает хранилище, когда строки нет.
var ErrNotFound = errors.New("not found")
