package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

func runIngest(apiURL, ownerID, filePath, comment string, out io.Writer) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	fileName := filepath.Base(filePath)
	fileType := mime.TypeByExtension(filepath.Ext(fileName))
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	payload := map[string]interface{}{
		"ownerId":  ownerID,
		"fileName": fileName,
		"fileType": fileType,
		"fileData": base64.StdEncoding.EncodeToString(data),
		"comment":  comment,
	}
	return postJSON(apiURL+"/api/memories", payload, http.StatusCreated, out)
}

func runSearch(apiURL, ownerID, query string, topK int, out io.Writer) error {
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	payload := map[string]interface{}{
		"ownerId": ownerID,
		"query":   query,
		"topK":    topK,
	}
	return postJSON(apiURL+"/api/search", payload, http.StatusOK, out)
}

func runChat(apiURL, ownerID, message string, out io.Writer) error {
	payload := map[string]interface{}{
		"ownerId": ownerID,
		"messages": []map[string]string{
			{"role": "user", "content": message},
		},
	}
	return postJSON(apiURL+"/api/chat", payload, http.StatusOK, out)
}

func runList(apiURL, ownerID string, out io.Writer) error {
	resp, err := http.Get(apiURL + "/api/owners/" + ownerID + "/memories")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	_, err = io.Copy(out, resp.Body)
	return err
}

func runGetModelConfig(apiURL, ownerID string, out io.Writer) error {
	resp, err := http.Get(apiURL + "/api/owners/" + ownerID + "/model-config")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	_, err = io.Copy(out, resp.Body)
	return err
}

func runSetModelConfig(apiURL, ownerID, provider, chatModel, embedModel, credentialRef string, out io.Writer) error {
	payload := map[string]interface{}{
		"provider": provider,
	}
	if chatModel != "" {
		payload["chatModelId"] = chatModel
	}
	if embedModel != "" {
		payload["embedModelId"] = embedModel
	}
	if credentialRef != "" {
		payload["credentialRef"] = credentialRef
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPut, apiURL+"/api/owners/"+ownerID+"/model-config", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	_, err = io.Copy(out, resp.Body)
	return err
}

func postJSON(url string, payload interface{}, wantStatus int, out io.Writer) error {
	body, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	_, err = io.Copy(out, resp.Body)
	return err
}
