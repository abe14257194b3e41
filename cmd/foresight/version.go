package foresight

const Version = "0.3.1"
