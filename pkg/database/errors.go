package database

import "errors"

// ErrUnsupportedDriver indicates a driver other than postgres or sqlite was configured.
var ErrUnsupportedDriver = errors.New("unsupported database driver")
