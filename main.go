/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/SvenDH/go-circle-evolution/cmd"

func main() {
	cmd.Execute()
}
