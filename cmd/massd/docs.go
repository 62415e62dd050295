package main

//go:generate swag init -g cmd/massd/main.go -o docs

// @title           Mass Manager Scheduling API
// @version         0.1.0
// @description     Intention preview and confirmation, celebrant availability, special days and the lifecycle sweep.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
