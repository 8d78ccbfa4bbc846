// @title           Workforce realtime API
// @version         1.0
// @description     Сообщения, присутствие и уведомления (документация Swagger).
// @host            localhost:4000
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

func main() {
	Execute()
}
