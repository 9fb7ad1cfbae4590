// Package fetch implements the request pipeline shared by the API clients:
// URL assembly from a base URL, a path and query parameters, body encoding
// (raw text, multipart form or JSON), header merging, response decoding by
// content type and classification of failures into a RequestError.
// The network exchange itself is delegated to a Transport.
package fetch
