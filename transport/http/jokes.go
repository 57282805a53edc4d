package http

import (
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Content served to license holders only.
var jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"There are 10 kinds of people: those who understand binary and those who don't.",
	"A SQL query walks into a bar, walks up to two tables and asks: can I join you?",
	"I would tell you a UDP joke, but you might not get it.",
	"Gas fees are just the blockchain's way of saying it believes in you.",
	"My wallet has a private key. My fridge does not, which explains a lot.",
}

// Jokes returns a random joke to an authenticated license holder
func (h *AuthHandlers) Jokes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"content": jokes[rand.Intn(len(jokes))],
	})
}
