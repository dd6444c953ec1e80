// Gigboard API: гиги, заявки и шоукейсы с согласованием всех участников.
// Конфиг: CONFIG_PATH (по умолчанию config/config.yaml) или переменные окружения при DATABASE_URL.
package main

import "gigboard_backend/internal/app"

func main() {
	app.Run()
}
