// Package autoload registers every built-in channel factory.
package autoload

import (
	_ "topovibe/pkg/channels/telegram"
	_ "topovibe/pkg/channels/web"
)
