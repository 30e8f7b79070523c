package fluid

// Version is the library version reported by the fluid command.
const Version = "0.3.0"
