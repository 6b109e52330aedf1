package request

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"sizes/internal/types"
)

// FromForm builds a raw request from decoded form values and uploaded files.
//
// Forms cannot carry booleans, so the literal strings "true" and "false" are
// turned into booleans. Empty values of fields other than text are treated
// as not submitted, which is how an untouched number input arrives.
func FromForm(values url.Values, files map[string][]*multipart.FileHeader) RawRequest {
	raw := RawRequest{}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}

		v := vals[0]

		if key == FieldText {
			raw[key] = v
			continue
		}

		switch v {
		case "":
		case "true":
			raw[key] = true
		case "false":
			raw[key] = false
		default:
			raw[key] = v
		}
	}

	if headers := files[FieldFiles]; len(headers) > 0 {
		list := make([]types.File, 0, len(headers))
		for _, fh := range headers {
			list = append(list, types.FileFromHeader(fh))
		}

		raw[FieldFiles] = list
	}

	return raw
}

// FromMultipart is FromForm over a parsed multipart form.
func FromMultipart(form *multipart.Form) RawRequest {
	if form == nil {
		return RawRequest{}
	}

	return FromForm(form.Value, form.File)
}

// FromJSON decodes a JSON object into a raw request. Numbers outside text
// become their decimal strings, and entries of "files" shaped
// {"name","content"} become files whose content may be base64 when
// "encoding" is "base64". Anything else is passed through unchanged for the
// normalizer to reject.
func FromJSON(r io.Reader) (RawRequest, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	raw := RawRequest{}

	for key, v := range body {
		switch val := v.(type) {
		case json.Number:
			if key == FieldText {
				raw[key] = v
				continue
			}

			raw[key] = val.String()
		default:
			raw[key] = v
		}
	}

	list, ok := body[FieldFiles].([]any)
	if !ok {
		return raw, nil
	}

	converted := make([]any, 0, len(list))

	for _, item := range list {
		f, err := jsonToFile(item)
		if err != nil {
			return nil, err
		}

		if f == nil {
			converted = append(converted, item)
			continue
		}

		converted = append(converted, *f)
	}

	raw[FieldFiles] = converted

	return raw, nil
}

func jsonToFile(item any) (*types.File, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, nil
	}

	name, nameOK := obj["name"].(string)
	content, contentOK := obj["content"].(string)

	if !nameOK || !contentOK {
		return nil, nil
	}

	data := []byte(content)

	switch encoding, _ := obj["encoding"].(string); encoding {
	case "", "utf-8", "utf8":
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 content for file %q: %w", name, err)
		}

		data = decoded
	default:
		return nil, fmt.Errorf("unsupported encoding %q for file %q", encoding, name)
	}

	f := types.NewFile(name, data)

	return &f, nil
}
